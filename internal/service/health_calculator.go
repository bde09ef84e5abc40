package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/observability"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// ComputeHealth returns collateral/debt, or an infinite ratio when there is no debt
func ComputeHealth(collateral, debt decimal.Decimal) domain.HealthRatio {
	if !debt.IsPositive() {
		return domain.InfiniteRatio()
	}
	return domain.HealthRatio{Value: collateral.DivRound(debt, domain.RatioPrecision)}
}

// HealthCalculator assesses account solvency from fresh settlement valuations
type HealthCalculator struct {
	reader  chain.SettlementReader
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewHealthCalculator(reader chain.SettlementReader, metrics *observability.Metrics, logger zerolog.Logger) *HealthCalculator {
	return &HealthCalculator{
		reader:  reader,
		metrics: metrics,
		logger:  logger,
	}
}

// Assess reads adjusted collateral and debt and applies an optional hypothetical delta.
// Adjusted values never drop below zero after the delta.
func (c *HealthCalculator) Assess(ctx context.Context, account common.Address, delta *domain.HealthDelta) (*domain.HealthAssessment, error) {
	var collateral, debt domain.Valuation
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		value, err := c.reader.GetAdjustedCollateralValue(gctx, account)
		collateral = value
		return err
	})
	g.Go(func() error {
		value, err := c.reader.GetAdjustedDebtValue(gctx, account)
		debt = value
		return err
	})

	if err := g.Wait(); err != nil {
		c.observe("unavailable")
		c.logger.Warn().Err(err).Str("account", account.Hex()).Msg("valuation read failed")
		return nil, customError.WrapValuationUnavailable(account.Hex(), err)
	}

	current := &domain.HealthAssessment{
		Account:            account,
		RawCollateralValue: collateral.Raw,
		CollateralValue:    collateral.Adjusted,
		RawDebtValue:       debt.Raw,
		DebtValue:          debt.Adjusted,
	}
	current.Ratio = ComputeHealth(current.CollateralValue, current.DebtValue)
	return WithDelta(current, delta), nil
}

// WithDelta returns the assessment as if delta were applied, clamping values at zero.
// A nil or zero delta returns current unchanged.
func WithDelta(current *domain.HealthAssessment, delta *domain.HealthDelta) *domain.HealthAssessment {
	if delta.IsZero() {
		return current
	}
	assessment := *current
	assessment.CollateralValue = utils.ClampZero(current.CollateralValue.Add(delta.Collateral))
	assessment.DebtValue = utils.ClampZero(current.DebtValue.Add(delta.Debt))
	assessment.Hypothetical = true
	assessment.Ratio = ComputeHealth(assessment.CollateralValue, assessment.DebtValue)
	return &assessment
}

// Gate assesses the account as is and fails with UnhealthyPosition below threshold
func (c *HealthCalculator) Gate(ctx context.Context, account common.Address, delta *domain.HealthDelta, threshold decimal.Decimal) (*domain.HealthAssessment, error) {
	assessment, err := c.Assess(ctx, account, delta)
	if err != nil {
		return nil, err
	}
	if !assessment.Meets(threshold) {
		c.observe("unhealthy")
		return assessment, customError.WrapUnhealthyPosition(account.Hex(), assessment.Ratio.String(), threshold.String())
	}
	c.observe("healthy")
	return assessment, nil
}

func (c *HealthCalculator) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.HealthChecks.WithLabelValues(outcome).Inc()
	}
}
