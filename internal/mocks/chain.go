package mocks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/domain"
)

type MockSettlementReader struct {
	mock.Mock
}

func (m *MockSettlementReader) GetOfferNonce(ctx context.Context, key common.Hash) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSettlementReader) GetAmountBorrowed(ctx context.Context, key common.Hash) (decimal.Decimal, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSettlementReader) GetTokenBalance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error) {
	args := m.Called(ctx, owner, token)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSettlementReader) GetTokenAllowance(ctx context.Context, owner, spender, token common.Address) (decimal.Decimal, error) {
	args := m.Called(ctx, owner, spender, token)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSettlementReader) GetAdjustedCollateralValue(ctx context.Context, account common.Address) (domain.Valuation, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(domain.Valuation), args.Error(1)
}

func (m *MockSettlementReader) GetAdjustedDebtValue(ctx context.Context, account common.Address) (domain.Valuation, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(domain.Valuation), args.Error(1)
}

func (m *MockSettlementReader) GetDebtValueOf(ctx context.Context, token common.Address, amount decimal.Decimal) (domain.Valuation, error) {
	args := m.Called(ctx, token, amount)
	return args.Get(0).(domain.Valuation), args.Error(1)
}

func (m *MockSettlementReader) GetOnChainMaxOfferID(ctx context.Context, owner common.Address) (int64, bool, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockSettlementReader) ListDeposits(ctx context.Context, account common.Address) ([]domain.Deposit, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Deposit), args.Error(1)
}

type MockSignatureVerifier struct {
	mock.Mock
}

func (m *MockSignatureVerifier) Verify(offer *domain.Offer) error {
	args := m.Called(offer)
	return args.Error(0)
}

type MockTxConfirmer struct {
	mock.Mock
}

func (m *MockTxConfirmer) Confirm(ctx context.Context, txHash common.Hash) ([]chain.LoanStarted, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chain.LoanStarted), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// EventOfType matches a published domain event by type
func EventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(event domain.Event) bool {
		return event.Type == eventType
	})
}
