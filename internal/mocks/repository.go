package mocks

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/domain"
)

type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) Put(ctx context.Context, offer *domain.Offer) (bool, error) {
	args := m.Called(ctx, offer)
	return args.Bool(0), args.Error(1)
}

func (m *MockOfferRepository) Get(ctx context.Context, key common.Hash) (*domain.Offer, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListByOwner(ctx context.Context, owner common.Address) ([]*domain.Offer, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListByToken(ctx context.Context, token common.Address) ([]*domain.Offer, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListActive(ctx context.Context) ([]*domain.Offer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Offer), args.Error(1)
}

func (m *MockOfferRepository) MarkRevoked(ctx context.Context, key common.Hash, at time.Time) error {
	args := m.Called(ctx, key, at)
	return args.Error(0)
}

func (m *MockOfferRepository) MaxOfferID(ctx context.Context, owner common.Address) (int64, bool, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}
