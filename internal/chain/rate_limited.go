package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/segyhp/lending-engine/internal/domain"
)

// RateLimitedReader keeps settlement reads within an RPC request budget
type RateLimitedReader struct {
	next    SettlementReader
	limiter *rate.Limiter
}

// NewRateLimitedReader wraps next with a token bucket of perSecond requests and burst
func NewRateLimitedReader(next SettlementReader, perSecond float64, burst int) *RateLimitedReader {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedReader{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (r *RateLimitedReader) GetOfferNonce(ctx context.Context, key common.Hash) (int64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return r.next.GetOfferNonce(ctx, key)
}

func (r *RateLimitedReader) GetAmountBorrowed(ctx context.Context, key common.Hash) (decimal.Decimal, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}
	return r.next.GetAmountBorrowed(ctx, key)
}

func (r *RateLimitedReader) GetTokenBalance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}
	return r.next.GetTokenBalance(ctx, owner, token)
}

func (r *RateLimitedReader) GetTokenAllowance(ctx context.Context, owner, spender, token common.Address) (decimal.Decimal, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}
	return r.next.GetTokenAllowance(ctx, owner, spender, token)
}

func (r *RateLimitedReader) GetAdjustedCollateralValue(ctx context.Context, account common.Address) (domain.Valuation, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Valuation{}, err
	}
	return r.next.GetAdjustedCollateralValue(ctx, account)
}

func (r *RateLimitedReader) GetAdjustedDebtValue(ctx context.Context, account common.Address) (domain.Valuation, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Valuation{}, err
	}
	return r.next.GetAdjustedDebtValue(ctx, account)
}

func (r *RateLimitedReader) GetDebtValueOf(ctx context.Context, token common.Address, amount decimal.Decimal) (domain.Valuation, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Valuation{}, err
	}
	return r.next.GetDebtValueOf(ctx, token, amount)
}

func (r *RateLimitedReader) GetOnChainMaxOfferID(ctx context.Context, owner common.Address) (int64, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}
	return r.next.GetOnChainMaxOfferID(ctx, owner)
}

func (r *RateLimitedReader) ListDeposits(ctx context.Context, account common.Address) ([]domain.Deposit, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.ListDeposits(ctx, account)
}
