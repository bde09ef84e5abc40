package service

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/observability"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// OfferService is the offer submission and query surface
type OfferService struct {
	OfferRepo repository.OfferRepository
	verifier  chain.SignatureVerifier
	health    *HealthCalculator
	ids       *OfferIDAllocator
	liveState *LiveStateFetcher
	publisher events.Publisher
	config    *config.Config
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewOfferService(
	offerRepo repository.OfferRepository,
	verifier chain.SignatureVerifier,
	health *HealthCalculator,
	ids *OfferIDAllocator,
	liveState *LiveStateFetcher,
	publisher events.Publisher,
	config *config.Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *OfferService {
	return &OfferService{
		OfferRepo: offerRepo,
		verifier:  verifier,
		health:    health,
		ids:       ids,
		liveState: liveState,
		publisher: publisher,
		config:    config,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit stores a signed offer. Re-submitting the identical payload is a no-op success.
func (s *OfferService) Submit(ctx context.Context, request *domain.SubmitOfferRequest) (*domain.SubmitOfferResponse, error) {
	// 1. Structural checks
	offer, err := request.ToOffer()
	if err != nil {
		s.observe("rejected")
		return nil, customError.WrapInvalidOfferPayload(err.Error())
	}
	if err := offer.Validate(); err != nil {
		s.observe("rejected")
		return nil, customError.WrapInvalidOfferPayload(err.Error())
	}
	if err := s.verifier.Verify(offer); err != nil {
		s.observe("rejected")
		return nil, customError.WrapInvalidOfferPayload("signature does not authorize this offer: " + err.Error())
	}

	// 2. Idempotent resubmission skips the health gate
	existing, err := s.OfferRepo.Get(ctx, offer.Key)
	switch {
	case err == nil && existing.PayloadHash == offer.PayloadHash:
		s.observe("unchanged")
		return &domain.SubmitOfferResponse{Offer: existing, Created: false}, nil
	case err == nil:
		s.observe("rejected")
		return nil, customError.WrapDuplicateKey(offer.Key.Hex())
	case !errors.Is(err, repository.ErrNotFound):
		return nil, customError.WrapDatabaseError(err)
	}

	// 3. Owner must be healthy enough to post new offers
	if _, err := s.health.Gate(ctx, offer.Owner, nil, s.config.GetMinHealthFactor()); err != nil {
		s.observe("rejected")
		return nil, err
	}

	// 4. First writer wins on the key
	created, err := s.OfferRepo.Put(ctx, offer)
	if errors.Is(err, repository.ErrDuplicateKey) {
		s.observe("rejected")
		return nil, customError.WrapDuplicateKey(offer.Key.Hex())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !created {
		s.observe("unchanged")
		return &domain.SubmitOfferResponse{Offer: offer, Created: false}, nil
	}

	s.observe("created")
	s.logger.Info().
		Str("offer_key", offer.Key.Hex()).
		Str("owner", offer.Owner.Hex()).
		Str("token", offer.Token.Hex()).
		Int64("offer_id", offer.OfferID).
		Msg("offer stored")

	event := domain.NewEvent(domain.EventOfferCreated, domain.OfferCreated{
		Key:             offer.Key,
		Owner:           offer.Owner,
		Token:           offer.Token,
		OfferID:         offer.OfferID,
		Amount:          offer.Amount,
		InterestRateBPS: offer.InterestRateBPS,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("offer_key", offer.Key.Hex()).Msg("offer created event not delivered")
	}

	return &domain.SubmitOfferResponse{Offer: offer, Created: true}, nil
}

// Get returns one offer with its current usability
func (s *OfferService) Get(ctx context.Context, key common.Hash) (*domain.OfferView, error) {
	offer, err := s.OfferRepo.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapOfferNotFound(key.Hex())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	views, err := s.views(ctx, []*domain.Offer{offer})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListByOwner returns every offer of an owner, revoked ones included, in submission order
func (s *OfferService) ListByOwner(ctx context.Context, owner common.Address) ([]domain.OfferView, error) {
	offers, err := s.OfferRepo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.views(ctx, offers)
}

// ListByToken returns the token's book, cheapest first, annotated with live usability
func (s *OfferService) ListByToken(ctx context.Context, token common.Address) ([]domain.OfferView, error) {
	offers, err := s.OfferRepo.ListByToken(ctx, token)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s.views(ctx, offers)
}

// NextOfferID suggests the id the owner should sign their next offer under
func (s *OfferService) NextOfferID(ctx context.Context, owner common.Address) (*domain.NextOfferIDResponse, error) {
	next, err := s.ids.NextOfferID(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &domain.NextOfferIDResponse{Owner: owner, NextOfferID: next}, nil
}

func (s *OfferService) views(ctx context.Context, offers []*domain.Offer) ([]domain.OfferView, error) {
	states, err := s.liveState.FetchAll(ctx, offers)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]domain.OfferView, len(offers))
	for i, offer := range offers {
		views[i] = NewOfferView(offer, states[i], now)
	}
	return views, nil
}

func (s *OfferService) observe(result string) {
	if s.metrics != nil {
		s.metrics.OffersSubmitted.WithLabelValues(result).Inc()
	}
}
