package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	// BPSDenominator is the number of basis points in 100%
	BPSDenominator = 10_000

	// SecondsPerYear is the 365-day year interest accrues over
	SecondsPerYear = 365 * 24 * 60 * 60
)

// BPSToRate converts basis points to a fractional rate (500 -> 0.05)
func BPSToRate(bps int64) decimal.Decimal {
	return decimal.NewFromInt(bps).Div(decimal.NewFromInt(BPSDenominator))
}

// InterestForDuration calculates simple pro-rata interest in token base units
// Formula: principal * bps / 10,000 * duration / secondsPerYear
func InterestForDuration(principal decimal.Decimal, bps int64, durationSeconds int64) decimal.Decimal {
	if !principal.IsPositive() || bps <= 0 || durationSeconds <= 0 {
		return decimal.Zero
	}
	interest := principal.
		Mul(BPSToRate(bps)).
		Mul(decimal.NewFromInt(durationSeconds)).
		Div(decimal.NewFromInt(SecondsPerYear))

	// Round to whole base units
	return interest.Round(0)
}

// MinDecimal returns the smaller of two decimals
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ClampZero returns d, or zero when d is negative
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseAddress parses a 0x-prefixed hex address
func ParseAddress(s string) (common.Address, error) {
	trimmed := strings.TrimSpace(s)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(trimmed), nil
}

// ParseHash parses a 0x-prefixed 32-byte hex hash such as an offer key
func ParseHash(s string) (common.Hash, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) != 66 || !strings.HasPrefix(trimmed, "0x") {
		return common.Hash{}, fmt.Errorf("invalid hash %q", s)
	}
	for _, c := range trimmed[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return common.Hash{}, fmt.Errorf("invalid hash %q", s)
		}
	}
	return common.HexToHash(trimmed), nil
}

// DecimalFromString converts string to decimal.Decimal, empty meaning zero
func DecimalFromString(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}
