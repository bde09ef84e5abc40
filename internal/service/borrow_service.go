package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// BorrowService quotes borrow requests and records executed loans
type BorrowService struct {
	OfferRepo repository.OfferRepository
	engine    *AllocationEngine
	health    *HealthCalculator
	reader    chain.SettlementReader
	confirmer chain.TxConfirmer
	publisher events.Publisher
	config    *config.Config
	logger    zerolog.Logger
}

func NewBorrowService(
	offerRepo repository.OfferRepository,
	engine *AllocationEngine,
	health *HealthCalculator,
	reader chain.SettlementReader,
	confirmer chain.TxConfirmer,
	publisher events.Publisher,
	config *config.Config,
	logger zerolog.Logger,
) *BorrowService {
	return &BorrowService{
		OfferRepo: offerRepo,
		engine:    engine,
		health:    health,
		reader:    reader,
		confirmer: confirmer,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// Quote allocates the request and checks the borrower's health as if the loan were taken
func (s *BorrowService) Quote(ctx context.Context, request *domain.QuoteRequest) (*domain.QuoteResponse, error) {
	borrower, err := utils.ParseAddress(request.Borrower)
	if err != nil {
		return nil, customError.WrapInvalidOfferPayload(err.Error())
	}
	token, err := utils.ParseAddress(request.Token)
	if err != nil {
		return nil, customError.WrapInvalidOfferPayload(err.Error())
	}

	// 1. Split the request across the book
	allocation, err := s.engine.Allocate(ctx, token, request.Amount, request.Duration)
	if err != nil {
		return nil, err
	}
	if request.Strict && allocation.Shortfall() {
		return nil, customError.WrapInsufficientSupply(allocation.Requested.String(), allocation.Filled.String())
	}

	// 2. Price the new debt alongside the current valuations
	var current *domain.HealthAssessment
	delta := &domain.HealthDelta{Collateral: decimal.Zero, Debt: decimal.Zero}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		assessment, err := s.health.Assess(gctx, borrower, nil)
		current = assessment
		return err
	})
	if allocation.Filled.IsPositive() {
		g.Go(func() error {
			debt, err := s.reader.GetDebtValueOf(gctx, token, allocation.Filled)
			if err != nil {
				return customError.WrapValuationUnavailable(borrower.Hex(), err)
			}
			delta.Debt = debt.Adjusted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	assessment := WithDelta(current, delta)

	// 3. Cost of the loan
	interest := decimal.Zero
	for _, entry := range allocation.Entries {
		interest = interest.Add(utils.InterestForDuration(entry.Amount, entry.Offer.InterestRateBPS, request.Duration))
	}

	return &domain.QuoteResponse{
		Allocation:        allocation,
		BlendedRateBPS:    allocation.BlendedRateBPS(),
		EstimatedInterest: interest,
		Health:            assessment,
		MeetsThreshold:    assessment.Meets(s.config.GetMinHealthFactor()),
	}, nil
}

// ConfirmLoan checks an executed loan transaction against the claimed entries and announces it
func (s *BorrowService) ConfirmLoan(ctx context.Context, request *domain.ConfirmLoanRequest) (*domain.LoanOpened, error) {
	borrower, err := utils.ParseAddress(request.Borrower)
	if err != nil {
		return nil, customError.WrapInvalidOfferPayload(err.Error())
	}
	token, err := utils.ParseAddress(request.Token)
	if err != nil {
		return nil, customError.WrapInvalidOfferPayload(err.Error())
	}
	txHash, err := utils.ParseHash(request.TxHash)
	if err != nil {
		return nil, customError.WrapInvalidOfferPayload(err.Error())
	}

	started, err := s.confirmer.Confirm(ctx, txHash)
	if err != nil {
		return nil, customError.WrapTransactionNotConfirmed(txHash.Hex(), err)
	}

	loan := &domain.LoanOpened{
		Borrower: borrower,
		Token:    token,
		TxHash:   txHash,
		Duration: request.Duration,
		Entries:  make([]domain.LoanEntry, 0, len(request.Entries)),
		Total:    decimal.Zero,
	}
	used := make([]bool, len(started))
	for _, entry := range request.Entries {
		key, err := utils.ParseHash(entry.OfferKey)
		if err != nil {
			return nil, customError.WrapInvalidOfferPayload(err.Error())
		}
		offer, err := s.OfferRepo.Get(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customError.WrapOfferNotFound(key.Hex())
		}
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}

		if !matchLoanStarted(started, used, offer, borrower, token, entry.Amount) {
			return nil, customError.WrapTransactionNotConfirmed(txHash.Hex(),
				fmt.Errorf("no LoanStarted for offer %s amount %s", key.Hex(), entry.Amount))
		}
		loan.Entries = append(loan.Entries, domain.LoanEntry{OfferKey: key, Lender: offer.Owner, Amount: entry.Amount})
		loan.Total = loan.Total.Add(entry.Amount)
	}

	s.logger.Info().
		Str("tx_hash", txHash.Hex()).
		Str("borrower", borrower.Hex()).
		Str("total", loan.Total.String()).
		Int("entries", len(loan.Entries)).
		Msg("loan confirmed")

	if err := s.publisher.Publish(ctx, domain.NewEvent(domain.EventLoanOpened, *loan)); err != nil {
		s.logger.Warn().Err(err).Str("tx_hash", txHash.Hex()).Msg("loan opened event not delivered")
	}
	return loan, nil
}

func matchLoanStarted(started []chain.LoanStarted, used []bool, offer *domain.Offer, borrower, token common.Address, amount decimal.Decimal) bool {
	for i, lg := range started {
		if used[i] {
			continue
		}
		if lg.Lender == offer.Owner && lg.OfferID == offer.OfferID &&
			lg.Borrower == borrower && lg.Token == token && lg.Amount.Equal(amount) {
			used[i] = true
			return true
		}
	}
	return false
}
