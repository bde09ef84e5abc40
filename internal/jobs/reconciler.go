package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/observability"
	"github.com/segyhp/lending-engine/internal/repository"
)

// NonceSource reads the settlement layer's current nonce for an offer key
type NonceSource interface {
	GetOfferNonce(ctx context.Context, key common.Hash) (int64, error)
}

// RunResult summarises one reconciler pass
type RunResult struct {
	Checked int
	Revoked int
	Failed  int
}

// Reconciler marks stored offers revoked once the owner has raised their on-chain nonce
// past the signed one.
// Expired offers are skipped; expiry is evaluated whenever an offer is read.
type Reconciler struct {
	offerRepo   repository.OfferRepository
	nonces      NonceSource
	publisher   events.Publisher
	concurrency int
	metrics     *observability.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewReconciler(
	offerRepo repository.OfferRepository,
	nonces NonceSource,
	publisher events.Publisher,
	concurrency int,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		offerRepo:   offerRepo,
		nonces:      nonces,
		publisher:   publisher,
		concurrency: concurrency,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce checks every active offer once. A failed nonce read leaves the offer as is.
func (r *Reconciler) RunOnce(ctx context.Context) (RunResult, error) {
	offers, err := r.offerRepo.ListActive(ctx)
	if err != nil {
		r.observe("error")
		return RunResult{}, err
	}

	now := r.now()
	var (
		mu     sync.Mutex
		result RunResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, offer := range offers {
		if offer.IsExpiredAt(now.Unix()) {
			continue
		}
		g.Go(func() error {
			revoked, err := r.reconcile(gctx, offer, now)

			mu.Lock()
			defer mu.Unlock()
			result.Checked++
			switch {
			case err != nil:
				result.Failed++
			case revoked:
				result.Revoked++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		r.observe("error")
		return result, err
	}

	outcome := "ok"
	if result.Failed > 0 {
		outcome = "partial"
	}
	r.observe(outcome)
	r.logger.Info().
		Int("checked", result.Checked).
		Int("revoked", result.Revoked).
		Int("failed", result.Failed).
		Msg("reconcile pass finished")
	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, offer *domain.Offer, now time.Time) (bool, error) {
	onChain, err := r.nonces.GetOfferNonce(ctx, offer.Key)
	if err != nil {
		r.logger.Warn().Err(err).Str("offer_key", offer.Key.Hex()).Msg("nonce read failed")
		return false, err
	}
	// A chain nonce still below the signed one means the offer is not live yet
	if onChain <= offer.Nonce {
		return false, nil
	}

	if err := r.offerRepo.MarkRevoked(ctx, offer.Key, now); err != nil {
		r.logger.Error().Err(err).Str("offer_key", offer.Key.Hex()).Msg("mark revoked failed")
		return false, err
	}
	if r.metrics != nil {
		r.metrics.OffersRevoked.Inc()
	}
	r.logger.Info().
		Str("offer_key", offer.Key.Hex()).
		Int64("signed_nonce", offer.Nonce).
		Int64("on_chain_nonce", onChain).
		Msg("offer revoked")

	event := domain.NewEvent(domain.EventOfferRevoked, domain.OfferRevoked{
		Key:          offer.Key,
		Owner:        offer.Owner,
		Token:        offer.Token,
		SignedNonce:  offer.Nonce,
		OnChainNonce: onChain,
	})
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn().Err(err).Str("offer_key", offer.Key.Hex()).Msg("offer revoked event not delivered")
	}
	return true, nil
}

func (r *Reconciler) observe(outcome string) {
	if r.metrics != nil {
		r.metrics.ReconcileRuns.WithLabelValues(outcome).Inc()
	}
}
