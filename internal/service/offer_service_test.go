package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/mocks"
	"github.com/segyhp/lending-engine/internal/observability"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

type offerServiceFixture struct {
	service   *OfferService
	repo      repository.OfferRepository
	reader    *mocks.MockSettlementReader
	verifier  *mocks.MockSignatureVerifier
	publisher *mocks.MockPublisher
	metrics   *observability.Metrics
}

func newOfferServiceFixture(t *testing.T, repo repository.OfferRepository) *offerServiceFixture {
	t.Helper()
	f := &offerServiceFixture{
		repo:      repo,
		reader:    &mocks.MockSettlementReader{},
		verifier:  &mocks.MockSignatureVerifier{},
		publisher: &mocks.MockPublisher{},
		metrics:   observability.NewMetrics(prometheus.NewRegistry()),
	}
	logger := zerolog.Nop()
	f.service = NewOfferService(
		repo,
		f.verifier,
		NewHealthCalculator(f.reader, f.metrics, logger),
		NewOfferIDAllocator(repo, f.reader),
		newTestFetcher(f.reader),
		f.publisher,
		testConfig(),
		f.metrics,
		logger,
	)
	f.service.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return f
}

func requestFor(offer *domain.Offer) *domain.SubmitOfferRequest {
	return &domain.SubmitOfferRequest{
		Owner:           offer.Owner.Hex(),
		Token:           offer.Token.Hex(),
		OfferID:         offer.OfferID,
		Nonce:           offer.Nonce,
		MinLoanAmount:   offer.MinLoanAmount,
		Amount:          offer.Amount,
		InterestRateBPS: offer.InterestRateBPS,
		Expiration:      offer.Expiration,
		MinLoanDuration: offer.MinLoanDuration,
		MaxLoanDuration: offer.MaxLoanDuration,
		Signature:       hexutil.Encode(offer.Signature),
	}
}

func TestOfferService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a new offer and announces it", func(t *testing.T) {
		f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
		offer := makeOffer(lenderA, 1, 500, 1000, 0)
		f.verifier.On("Verify", mock.Anything).Return(nil)
		stubValuations(f.reader, lenderA, 200, 100)
		f.publisher.On("Publish", mock.Anything, mocks.EventOfType(domain.EventOfferCreated)).Return(nil).Once()

		resp, err := f.service.Submit(ctx, requestFor(offer))

		require.NoError(t, err)
		assert.True(t, resp.Created)
		assert.Equal(t, offer.Key, resp.Offer.Key)
		assert.Equal(t, offer.PayloadHash, resp.Offer.PayloadHash)
		stored, err := f.repo.Get(ctx, offer.Key)
		require.NoError(t, err)
		assert.Equal(t, offer.PayloadHash, stored.PayloadHash)
		f.publisher.AssertExpectations(t)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OffersSubmitted.WithLabelValues("created")))
	})

	t.Run("identical resubmission is a silent no-op", func(t *testing.T) {
		f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
		offer := makeOffer(lenderA, 1, 500, 1000, 0)
		_, err := f.repo.Put(ctx, makeOffer(lenderA, 1, 500, 1000, 0))
		require.NoError(t, err)
		f.verifier.On("Verify", mock.Anything).Return(nil)

		resp, err := f.service.Submit(ctx, requestFor(offer))

		require.NoError(t, err)
		assert.False(t, resp.Created)
		f.reader.AssertNotCalled(t, "GetAdjustedCollateralValue", mock.Anything, mock.Anything)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("different payload under a taken key", func(t *testing.T) {
		f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
		_, err := f.repo.Put(ctx, makeOffer(lenderA, 1, 500, 1000, 0))
		require.NoError(t, err)
		f.verifier.On("Verify", mock.Anything).Return(nil)

		_, err = f.service.Submit(ctx, requestFor(makeOffer(lenderA, 1, 450, 1000, 0)))

		assert.ErrorIs(t, err, customError.ErrDuplicateKey)
	})

	t.Run("store race resolves to duplicate", func(t *testing.T) {
		repo := &mocks.MockOfferRepository{}
		f := newOfferServiceFixture(t, repo)
		offer := makeOffer(lenderA, 1, 500, 1000, 0)
		f.verifier.On("Verify", mock.Anything).Return(nil)
		stubValuations(f.reader, lenderA, 200, 100)
		repo.On("Get", mock.Anything, offer.Key).Return(nil, repository.ErrNotFound)
		repo.On("Put", mock.Anything, mock.Anything).Return(false, repository.ErrDuplicateKey)

		_, err := f.service.Submit(ctx, requestFor(offer))

		assert.ErrorIs(t, err, customError.ErrDuplicateKey)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("structurally invalid payloads", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(r *domain.SubmitOfferRequest)
		}{
			{"inverted durations", func(r *domain.SubmitOfferRequest) { r.MinLoanDuration = r.MaxLoanDuration + 1 }},
			{"zero amount", func(r *domain.SubmitOfferRequest) { r.Amount = amount(0) }},
			{"negative min loan", func(r *domain.SubmitOfferRequest) { r.MinLoanAmount = amount(-1) }},
			{"short signature", func(r *domain.SubmitOfferRequest) { r.Signature = "0x0102" }},
			{"non-hex signature", func(r *domain.SubmitOfferRequest) { r.Signature = "signed" }},
			{"bad owner", func(r *domain.SubmitOfferRequest) { r.Owner = "0x1234" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
				f.verifier.On("Verify", mock.Anything).Return(nil).Maybe()
				request := requestFor(makeOffer(lenderA, 1, 500, 1000, 0))
				tt.mutate(request)

				_, err := f.service.Submit(ctx, request)

				assert.ErrorIs(t, err, customError.ErrInvalidOfferPayload)
				assert.Equal(t, customError.ErrCodeInvalidOfferPayload, customError.Code(err))
			})
		}
	})

	t.Run("signature from someone else", func(t *testing.T) {
		f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
		f.verifier.On("Verify", mock.Anything).Return(errors.New("signer mismatch"))

		_, err := f.service.Submit(ctx, requestFor(makeOffer(lenderA, 1, 500, 1000, 0)))

		assert.ErrorIs(t, err, customError.ErrInvalidOfferPayload)
	})

	t.Run("unhealthy owner cannot post", func(t *testing.T) {
		f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
		offer := makeOffer(lenderA, 1, 500, 1000, 0)
		f.verifier.On("Verify", mock.Anything).Return(nil)
		stubValuations(f.reader, lenderA, 90, 100)

		_, err := f.service.Submit(ctx, requestFor(offer))

		assert.ErrorIs(t, err, customError.ErrUnhealthyPosition)
		_, getErr := f.repo.Get(ctx, offer.Key)
		assert.ErrorIs(t, getErr, repository.ErrNotFound)
	})

	t.Run("owner health unknown", func(t *testing.T) {
		f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
		f.verifier.On("Verify", mock.Anything).Return(nil)
		f.reader.On("GetAdjustedCollateralValue", mock.Anything, lenderA).Return(domain.Valuation{}, errors.New("timeout"))
		f.reader.On("GetAdjustedDebtValue", mock.Anything, lenderA).Return(domain.Valuation{}, nil).Maybe()

		_, err := f.service.Submit(ctx, requestFor(makeOffer(lenderA, 1, 500, 1000, 0)))

		assert.ErrorIs(t, err, customError.ErrValuationUnavailable)
	})

	t.Run("event delivery failure does not fail the submission", func(t *testing.T) {
		f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())
		f.verifier.On("Verify", mock.Anything).Return(nil)
		stubValuations(f.reader, lenderA, 200, 0)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nats down"))

		resp, err := f.service.Submit(ctx, requestFor(makeOffer(lenderA, 1, 500, 1000, 0)))

		require.NoError(t, err)
		assert.True(t, resp.Created)
	})
}

func TestOfferService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newOfferServiceFixture(t, repository.NewMemoryOfferRepository())

	offerA := makeOffer(lenderA, 1, 500, 1000, 0)
	offerB := makeOffer(lenderB, 1, 300, 500, 0)
	offerA2 := makeOffer(lenderA, 2, 700, 800, 0)
	offerA2.Nonce = 1
	offerA2.Seal()
	for _, offer := range []*domain.Offer{offerA, offerB, offerA2} {
		_, err := f.repo.Put(ctx, offer)
		require.NoError(t, err)
	}
	stubLiveState(f.reader, offerA, freshState(offerA))
	stubLiveState(f.reader, offerB, freshState(offerB))
	// on-chain nonce moved past the signed one
	f.reader.On("GetOfferNonce", mock.Anything, offerA2.Key).Return(int64(2), nil)
	f.reader.On("GetAmountBorrowed", mock.Anything, offerA2.Key).Return(amount(0), nil)

	t.Run("token book is rate sorted with live usability", func(t *testing.T) {
		views, err := f.service.ListByToken(ctx, token)

		require.NoError(t, err)
		require.Len(t, views, 3)
		assert.Equal(t, offerB.Key, views[0].Offer.Key)
		assert.Equal(t, offerA.Key, views[1].Offer.Key)
		assert.Equal(t, offerA2.Key, views[2].Offer.Key)
		assert.True(t, views[0].Usable)
		assert.False(t, views[2].Usable)
		assert.True(t, views[2].Available.IsZero())
	})

	t.Run("owner listing in submission order", func(t *testing.T) {
		views, err := f.service.ListByOwner(ctx, lenderA)

		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, offerA.Key, views[0].Offer.Key)
		assert.Equal(t, offerA2.Key, views[1].Offer.Key)
	})

	t.Run("single offer", func(t *testing.T) {
		view, err := f.service.Get(ctx, offerB.Key)

		require.NoError(t, err)
		assert.True(t, view.Usable)
		assert.True(t, view.Available.Equal(amount(500)))
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := f.service.Get(ctx, domain.OfferKey(lenderC, token, 1))
		assert.ErrorIs(t, err, customError.ErrOfferNotFound)
	})

	t.Run("next offer id", func(t *testing.T) {
		f.reader.On("GetOnChainMaxOfferID", mock.Anything, lenderA).Return(int64(0), false, nil)

		resp, err := f.service.NextOfferID(ctx, lenderA)

		require.NoError(t, err)
		assert.Equal(t, lenderA, resp.Owner)
		assert.Equal(t, int64(3), resp.NextOfferID)
	})
}
