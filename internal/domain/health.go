package domain

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// RatioPrecision is the number of decimal places kept on a health ratio
const RatioPrecision = 18

// Valuation is a settlement-layer value pair in the common valuation unit
type Valuation struct {
	Raw      decimal.Decimal `json:"raw"`
	Adjusted decimal.Decimal `json:"adjusted"`
}

// HealthRatio is collateral over debt; Infinite stands for zero debt
type HealthRatio struct {
	Value    decimal.Decimal
	Infinite bool
}

// InfiniteRatio is the ratio of an account without debt
func InfiniteRatio() HealthRatio {
	return HealthRatio{Infinite: true}
}

// AtLeast reports whether the ratio meets the threshold
func (r HealthRatio) AtLeast(threshold decimal.Decimal) bool {
	if r.Infinite {
		return true
	}
	return r.Value.GreaterThanOrEqual(threshold)
}

func (r HealthRatio) String() string {
	if r.Infinite {
		return "Infinity"
	}
	return r.Value.String()
}

func (r HealthRatio) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *HealthRatio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "Infinity" {
		*r = InfiniteRatio()
		return nil
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*r = HealthRatio{Value: value}
	return nil
}

// HealthDelta is a hypothetical change to adjusted collateral and debt; signed
type HealthDelta struct {
	Collateral decimal.Decimal `json:"collateral"`
	Debt       decimal.Decimal `json:"debt"`
}

// IsZero reports whether the delta changes nothing
func (d *HealthDelta) IsZero() bool {
	return d == nil || (d.Collateral.IsZero() && d.Debt.IsZero())
}

// HealthAssessment is a fresh solvency snapshot of one account
type HealthAssessment struct {
	Account            common.Address  `json:"account"`
	RawCollateralValue decimal.Decimal `json:"rawCollateralValue"`
	CollateralValue    decimal.Decimal `json:"collateralValue"`
	RawDebtValue       decimal.Decimal `json:"rawDebtValue"`
	DebtValue          decimal.Decimal `json:"debtValue"`
	Ratio              HealthRatio     `json:"ratio"`
	Hypothetical       bool            `json:"hypothetical"`
}

// Deposit is one collateral position held by the settlement layer
type Deposit struct {
	Asset      common.Address  `json:"asset"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	PositionID string          `json:"positionId,omitempty"`
}

const (
	DepositKindToken    = "token"
	DepositKindPosition = "position"
)

// Meets reports whether the assessed ratio clears the threshold
func (a *HealthAssessment) Meets(threshold decimal.Decimal) bool {
	return a.Ratio.AtLeast(threshold)
}

type AccountHealthResponse struct {
	Health         *HealthAssessment `json:"health"`
	Threshold      decimal.Decimal   `json:"threshold"`
	MeetsThreshold bool              `json:"meetsThreshold"`
}
