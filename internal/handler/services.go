package handler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/segyhp/lending-engine/internal/domain"
)

// OfferService is what the offer endpoints need from the service layer
type OfferService interface {
	Submit(ctx context.Context, request *domain.SubmitOfferRequest) (*domain.SubmitOfferResponse, error)
	Get(ctx context.Context, key common.Hash) (*domain.OfferView, error)
	ListByOwner(ctx context.Context, owner common.Address) ([]domain.OfferView, error)
	ListByToken(ctx context.Context, token common.Address) ([]domain.OfferView, error)
	NextOfferID(ctx context.Context, owner common.Address) (*domain.NextOfferIDResponse, error)
}

// BorrowService is what the quote and loan endpoints need
type BorrowService interface {
	Quote(ctx context.Context, request *domain.QuoteRequest) (*domain.QuoteResponse, error)
	ConfirmLoan(ctx context.Context, request *domain.ConfirmLoanRequest) (*domain.LoanOpened, error)
}

// AccountService is what the account endpoints need
type AccountService interface {
	Health(ctx context.Context, account common.Address, delta *domain.HealthDelta) (*domain.AccountHealthResponse, error)
	Deposits(ctx context.Context, account common.Address) ([]domain.Deposit, error)
}
