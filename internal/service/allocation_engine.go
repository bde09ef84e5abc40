package service

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/observability"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// AllocationEngine splits a borrow request across the cheapest usable offers
type AllocationEngine struct {
	OfferRepo repository.OfferRepository
	liveState *LiveStateFetcher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAllocationEngine(
	offerRepo repository.OfferRepository,
	liveState *LiveStateFetcher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *AllocationEngine {
	return &AllocationEngine{
		OfferRepo: offerRepo,
		liveState: liveState,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Allocate fills requested token units for the given duration from the offer book.
// A short fill is reported through Remaining, never as an error.
func (e *AllocationEngine) Allocate(ctx context.Context, token common.Address, requested decimal.Decimal, duration int64) (*domain.LoanAllocation, error) {
	if requested.IsNegative() {
		return nil, customError.WrapInvalidOfferPayload("requested amount must not be negative")
	}

	allocation := &domain.LoanAllocation{
		Token:     token,
		Requested: requested,
		Duration:  duration,
		Entries:   []domain.AllocationEntry{},
		Filled:    decimal.Zero,
		Remaining: requested,
	}
	if requested.IsZero() {
		e.observe(allocation)
		return allocation, nil
	}

	// 1. Book for the token, cheapest first, insertion order on ties
	offers, err := e.OfferRepo.ListByToken(ctx, token)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// 2. Drop offers that cannot match before paying for live reads
	now := e.now()
	candidates := make([]*domain.Offer, 0, len(offers))
	for _, offer := range offers {
		if !offer.SupportsDuration(duration) || offer.IsExpiredAt(now.Unix()) {
			continue
		}
		candidates = append(candidates, offer)
	}

	// 3. Usability against a fresh snapshot
	states, err := e.liveState.FetchAll(ctx, candidates)
	if err != nil {
		return nil, err
	}
	views := make([]domain.OfferView, len(candidates))
	for i, offer := range candidates {
		views[i] = NewOfferView(offer, states[i], now)
	}

	// 4. Greedy walk
	allocation.Entries, allocation.Remaining = FillGreedy(views, requested)
	allocation.Filled = requested.Sub(allocation.Remaining)

	e.logger.Debug().
		Str("token", token.Hex()).
		Str("requested", requested.String()).
		Str("filled", allocation.Filled.String()).
		Int("candidates", len(candidates)).
		Int("entries", len(allocation.Entries)).
		Msg("allocation computed")
	e.observe(allocation)
	return allocation, nil
}

// FillGreedy walks views in order and takes from each usable one until requested is met.
// An offer whose minimum exceeds what is still unfilled is skipped, never under-filled.
func FillGreedy(views []domain.OfferView, requested decimal.Decimal) ([]domain.AllocationEntry, decimal.Decimal) {
	entries := []domain.AllocationEntry{}
	remaining := requested

	for _, view := range views {
		if !remaining.IsPositive() {
			break
		}
		if !view.Usable {
			continue
		}
		if view.Offer.MinLoanAmount.GreaterThan(remaining) {
			continue
		}

		take := utils.MinDecimal(view.Available, remaining)
		if !take.IsPositive() {
			continue
		}
		entries = append(entries, domain.AllocationEntry{Offer: view.Offer, Amount: take})
		remaining = remaining.Sub(take)
	}
	return entries, remaining
}

func (e *AllocationEngine) observe(allocation *domain.LoanAllocation) {
	if e.metrics == nil {
		return
	}
	outcome := "filled"
	switch {
	case len(allocation.Entries) == 0:
		outcome = "empty"
	case allocation.Shortfall():
		outcome = "partial"
	}
	e.metrics.Allocations.WithLabelValues(outcome).Inc()
	e.metrics.AllocationEntries.Observe(float64(len(allocation.Entries)))
}
