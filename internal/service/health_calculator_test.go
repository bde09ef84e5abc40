package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/mocks"
	"github.com/segyhp/lending-engine/internal/observability"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func TestComputeHealth(t *testing.T) {
	tests := []struct {
		name       string
		collateral decimal.Decimal
		debt       decimal.Decimal
		infinite   bool
		expected   decimal.Decimal
	}{
		{name: "no debt", collateral: amount(100), debt: decimal.Zero, infinite: true},
		{name: "no debt and no collateral", collateral: decimal.Zero, debt: decimal.Zero, infinite: true},
		{name: "no collateral", collateral: decimal.Zero, debt: amount(50), expected: decimal.Zero},
		{name: "over-collateralized", collateral: amount(150), debt: amount(100), expected: decimal.RequireFromString("1.5")},
		{name: "under water", collateral: amount(2), debt: amount(3), expected: decimal.RequireFromString("0.666666666666666667")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio := ComputeHealth(tt.collateral, tt.debt)
			assert.Equal(t, tt.infinite, ratio.Infinite)
			if !tt.infinite {
				assert.True(t, tt.expected.Equal(ratio.Value), "expected %s, got %s", tt.expected, ratio.Value)
			}
		})
	}
}

func TestHealthCalculator_Assess(t *testing.T) {
	ctx := context.Background()

	t.Run("current position", func(t *testing.T) {
		reader := &mocks.MockSettlementReader{}
		reader.On("GetAdjustedCollateralValue", mock.Anything, borrower).
			Return(domain.Valuation{Raw: amount(250), Adjusted: amount(200)}, nil)
		reader.On("GetAdjustedDebtValue", mock.Anything, borrower).
			Return(domain.Valuation{Raw: amount(100), Adjusted: amount(125)}, nil)
		calc := NewHealthCalculator(reader, nil, zerolog.Nop())

		assessment, err := calc.Assess(ctx, borrower, nil)

		require.NoError(t, err)
		assert.True(t, assessment.RawCollateralValue.Equal(amount(250)))
		assert.True(t, assessment.CollateralValue.Equal(amount(200)))
		assert.True(t, assessment.DebtValue.Equal(amount(125)))
		assert.True(t, assessment.Ratio.Value.Equal(decimal.RequireFromString("1.6")))
		assert.False(t, assessment.Hypothetical)
		reader.AssertExpectations(t)
	})

	t.Run("hypothetical borrow", func(t *testing.T) {
		reader := &mocks.MockSettlementReader{}
		stubValuations(reader, borrower, 300, 100)
		calc := NewHealthCalculator(reader, nil, zerolog.Nop())

		assessment, err := calc.Assess(ctx, borrower, &domain.HealthDelta{Debt: amount(100)})

		require.NoError(t, err)
		assert.True(t, assessment.Hypothetical)
		assert.True(t, assessment.DebtValue.Equal(amount(200)))
		assert.True(t, assessment.Ratio.Value.Equal(decimal.RequireFromString("1.5")))
	})

	t.Run("deltas are clamped at zero", func(t *testing.T) {
		reader := &mocks.MockSettlementReader{}
		stubValuations(reader, borrower, 300, 100)
		calc := NewHealthCalculator(reader, nil, zerolog.Nop())

		assessment, err := calc.Assess(ctx, borrower, &domain.HealthDelta{Collateral: amount(-500), Debt: amount(-400)})

		require.NoError(t, err)
		assert.True(t, assessment.CollateralValue.IsZero())
		assert.True(t, assessment.DebtValue.IsZero())
		assert.True(t, assessment.Ratio.Infinite)
	})

	t.Run("valuation failure is never defaulted", func(t *testing.T) {
		reader := &mocks.MockSettlementReader{}
		oracleErr := errors.New("oracle stale")
		reader.On("GetAdjustedCollateralValue", mock.Anything, borrower).Return(domain.Valuation{}, oracleErr)
		reader.On("GetAdjustedDebtValue", mock.Anything, borrower).Return(domain.Valuation{}, nil).Maybe()
		metrics := observability.NewMetrics(prometheus.NewRegistry())
		calc := NewHealthCalculator(reader, metrics, zerolog.Nop())

		assessment, err := calc.Assess(ctx, borrower, nil)

		assert.Nil(t, assessment)
		assert.ErrorIs(t, err, customError.ErrValuationUnavailable)
		assert.ErrorIs(t, err, oracleErr)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HealthChecks.WithLabelValues("unavailable")))
	})
}

func TestWithDelta(t *testing.T) {
	current := &domain.HealthAssessment{
		Account:         borrower,
		CollateralValue: amount(300),
		DebtValue:       amount(100),
		Ratio:           ComputeHealth(amount(300), amount(100)),
	}

	assert.Same(t, current, WithDelta(current, nil))

	hypothetical := WithDelta(current, &domain.HealthDelta{Debt: amount(50)})
	assert.True(t, hypothetical.Hypothetical)
	assert.True(t, hypothetical.Ratio.Value.Equal(amount(2)))
	assert.False(t, current.Hypothetical)
	assert.True(t, current.DebtValue.Equal(amount(100)))
}

func TestHealthCalculator_Gate(t *testing.T) {
	ctx := context.Background()
	threshold := decimal.RequireFromString("1.2")

	t.Run("healthy", func(t *testing.T) {
		reader := &mocks.MockSettlementReader{}
		stubValuations(reader, lenderA, 130, 100)
		calc := NewHealthCalculator(reader, nil, zerolog.Nop())

		_, err := calc.Gate(ctx, lenderA, nil, threshold)
		assert.NoError(t, err)
	})

	t.Run("no debt always passes", func(t *testing.T) {
		reader := &mocks.MockSettlementReader{}
		stubValuations(reader, lenderA, 0, 0)
		calc := NewHealthCalculator(reader, nil, zerolog.Nop())

		_, err := calc.Gate(ctx, lenderA, nil, threshold)
		assert.NoError(t, err)
	})

	t.Run("below threshold", func(t *testing.T) {
		reader := &mocks.MockSettlementReader{}
		stubValuations(reader, lenderA, 110, 100)
		calc := NewHealthCalculator(reader, nil, zerolog.Nop())

		assessment, err := calc.Gate(ctx, lenderA, nil, threshold)
		assert.ErrorIs(t, err, customError.ErrUnhealthyPosition)
		require.NotNil(t, assessment)
		assert.True(t, assessment.Ratio.Value.Equal(decimal.RequireFromString("1.1")))
	})
}
