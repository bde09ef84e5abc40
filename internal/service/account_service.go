package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// DepositLister lists the collateral an account holds with the settlement layer
type DepositLister interface {
	ListDeposits(ctx context.Context, account common.Address) ([]domain.Deposit, error)
}

// AccountService answers health and collateral queries for an account
type AccountService struct {
	health   *HealthCalculator
	deposits DepositLister
	config   *config.Config
}

func NewAccountService(health *HealthCalculator, deposits DepositLister, config *config.Config) *AccountService {
	return &AccountService{
		health:   health,
		deposits: deposits,
		config:   config,
	}
}

// Health assesses the account, optionally under a hypothetical delta
func (s *AccountService) Health(ctx context.Context, account common.Address, delta *domain.HealthDelta) (*domain.AccountHealthResponse, error) {
	assessment, err := s.health.Assess(ctx, account, delta)
	if err != nil {
		return nil, err
	}

	threshold := s.config.GetMinHealthFactor()
	return &domain.AccountHealthResponse{
		Health:         assessment,
		Threshold:      threshold,
		MeetsThreshold: assessment.Meets(threshold),
	}, nil
}

// Deposits lists the account's collateral; the listing may be served from cache
func (s *AccountService) Deposits(ctx context.Context, account common.Address) ([]domain.Deposit, error) {
	deposits, err := s.deposits.ListDeposits(ctx, account)
	if err != nil {
		return nil, customError.WrapSettlementUnavailable(err)
	}
	return deposits, nil
}
