package mocks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/domain"
)

type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) Submit(ctx context.Context, request *domain.SubmitOfferRequest) (*domain.SubmitOfferResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmitOfferResponse), args.Error(1)
}

func (m *MockOfferService) Get(ctx context.Context, key common.Hash) (*domain.OfferView, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OfferView), args.Error(1)
}

func (m *MockOfferService) ListByOwner(ctx context.Context, owner common.Address) ([]domain.OfferView, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OfferView), args.Error(1)
}

func (m *MockOfferService) ListByToken(ctx context.Context, token common.Address) ([]domain.OfferView, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OfferView), args.Error(1)
}

func (m *MockOfferService) NextOfferID(ctx context.Context, owner common.Address) (*domain.NextOfferIDResponse, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NextOfferIDResponse), args.Error(1)
}

type MockBorrowService struct {
	mock.Mock
}

func (m *MockBorrowService) Quote(ctx context.Context, request *domain.QuoteRequest) (*domain.QuoteResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuoteResponse), args.Error(1)
}

func (m *MockBorrowService) ConfirmLoan(ctx context.Context, request *domain.ConfirmLoanRequest) (*domain.LoanOpened, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanOpened), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Health(ctx context.Context, account common.Address, delta *domain.HealthDelta) (*domain.AccountHealthResponse, error) {
	args := m.Called(ctx, account, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountHealthResponse), args.Error(1)
}

func (m *MockAccountService) Deposits(ctx context.Context, account common.Address) ([]domain.Deposit, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Deposit), args.Error(1)
}
