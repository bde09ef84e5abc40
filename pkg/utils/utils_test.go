package utils

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterestForDuration(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		bps       int64
		duration  int64
		expected  decimal.Decimal
	}{
		{
			name:      "one year at 5%",
			principal: decimal.NewFromInt(1_000_000),
			bps:       500,
			duration:  SecondsPerYear,
			expected:  decimal.NewFromInt(50_000), // 1,000,000 * 0.05
		},
		{
			name:      "thirty days at 3%",
			principal: decimal.NewFromInt(3_650_000),
			bps:       300,
			duration:  30 * 24 * 60 * 60,
			expected:  decimal.NewFromInt(9_000), // 3,650,000 * 0.03 * 30/365
		},
		{
			name:      "zero rate",
			principal: decimal.NewFromInt(1_000_000),
			bps:       0,
			duration:  SecondsPerYear,
			expected:  decimal.Zero,
		},
		{
			name:      "zero duration",
			principal: decimal.NewFromInt(1_000_000),
			bps:       500,
			duration:  0,
			expected:  decimal.Zero,
		},
		{
			name:      "rounds to base units",
			principal: decimal.NewFromInt(7),
			bps:       10_000,
			duration:  SecondsPerYear / 2,
			expected:  decimal.NewFromInt(4), // 3.5 rounds half up
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InterestForDuration(tt.principal, tt.bps, tt.duration)
			assert.True(t, tt.expected.Equal(result), "expected %s, got %s", tt.expected, result)
		})
	}
}

func TestBPSToRate(t *testing.T) {
	assert.True(t, BPSToRate(500).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, BPSToRate(0).IsZero())
}

func TestMinDecimalAndClampZero(t *testing.T) {
	assert.True(t, MinDecimal(decimal.NewFromInt(3), decimal.NewFromInt(5)).Equal(decimal.NewFromInt(3)))
	assert.True(t, MinDecimal(decimal.NewFromInt(5), decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
	assert.True(t, ClampZero(decimal.NewFromInt(-2)).IsZero())
	assert.True(t, ClampZero(decimal.NewFromInt(2)).Equal(decimal.NewFromInt(2)))
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" 0x00000000000000000000000000000000000000aa ")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), addr)

	_, err = ParseAddress("0x1234")
	assert.Error(t, err)
}

func TestParseHash(t *testing.T) {
	valid := "0x" + "ab00000000000000000000000000000000000000000000000000000000000001"
	hash, err := ParseHash(valid)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(valid), hash)

	for _, bad := range []string{"", "0x01", "ab" + valid[2:] + "00", "0x" + "zz" + valid[4:]} {
		_, err := ParseHash(bad)
		assert.Error(t, err, bad)
	}
}

func TestDecimalFromString(t *testing.T) {
	d, err := DecimalFromString("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = DecimalFromString("-12.5")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("-12.5")))

	_, err = DecimalFromString("abc")
	assert.Error(t, err)
}
