package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// LiveStateFetcher reads the on-chain state an offer's usability depends on
type LiveStateFetcher struct {
	reader      chain.SettlementReader
	spender     common.Address
	concurrency int
	logger      zerolog.Logger
}

// NewLiveStateFetcher builds a fetcher; spender is the settlement contract lenders approve
func NewLiveStateFetcher(reader chain.SettlementReader, spender common.Address, concurrency int, logger zerolog.Logger) *LiveStateFetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LiveStateFetcher{
		reader:      reader,
		spender:     spender,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Fetch reads nonce, amount borrowed, balance and allowance of one offer concurrently.
// Any failed read fails the whole snapshot.
func (f *LiveStateFetcher) Fetch(ctx context.Context, offer *domain.Offer) (domain.LiveState, error) {
	var state domain.LiveState
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		nonce, err := f.reader.GetOfferNonce(gctx, offer.Key)
		state.Nonce = nonce
		return err
	})
	g.Go(func() error {
		borrowed, err := f.reader.GetAmountBorrowed(gctx, offer.Key)
		state.AmountBorrowed = borrowed
		return err
	})
	g.Go(func() error {
		balance, err := f.reader.GetTokenBalance(gctx, offer.Owner, offer.Token)
		state.Balance = balance
		return err
	})
	g.Go(func() error {
		allowance, err := f.reader.GetTokenAllowance(gctx, offer.Owner, f.spender, offer.Token)
		state.Allowance = allowance
		return err
	})

	if err := g.Wait(); err != nil {
		f.logger.Warn().
			Err(err).
			Str("offer_key", offer.Key.Hex()).
			Msg("live state read failed")
		return domain.LiveState{}, customError.WrapLiveStateUnavailable(offer.Key.Hex(), err)
	}
	return state, nil
}

// FetchAll reads live state for many offers with bounded concurrency; results follow input order
func (f *LiveStateFetcher) FetchAll(ctx context.Context, offers []*domain.Offer) ([]domain.LiveState, error) {
	states := make([]domain.LiveState, len(offers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, offer := range offers {
		g.Go(func() error {
			state, err := f.Fetch(gctx, offer)
			if err != nil {
				return err
			}
			states[i] = state
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}
