package domain

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOwner = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func validOffer() *Offer {
	offer := &Offer{
		Owner:           testOwner,
		Token:           testToken,
		OfferID:         7,
		MinLoanAmount:   decimal.NewFromInt(10),
		Amount:          decimal.NewFromInt(1000),
		InterestRateBPS: 500,
		Expiration:      1_900_000_000,
		MinLoanDuration: 86_400,
		MaxLoanDuration: 30 * 86_400,
		Signature:       make([]byte, SignatureLength),
	}
	offer.Seal()
	return offer
}

func TestOfferKey(t *testing.T) {
	a := OfferKey(testOwner, testToken, 1)
	b := OfferKey(testOwner, testToken, 1)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, OfferKey(testOwner, testToken, 2))
	assert.NotEqual(t, a, OfferKey(testToken, testOwner, 1))
}

func TestSeal_PayloadHashCoversSignature(t *testing.T) {
	offer := validOffer()
	first := offer.PayloadHash

	offer.Signature[0] = 1
	offer.Seal()

	assert.NotEqual(t, first, offer.PayloadHash)
	assert.Equal(t, OfferKey(testOwner, testToken, 7), offer.Key)
}

func TestSigningHash_IgnoresServerFields(t *testing.T) {
	offer := validOffer()
	before := offer.SigningHash()

	offer.Seq = 99
	offer.Signature[10] = 0xff

	assert.Equal(t, before, offer.SigningHash())
}

func TestOffer_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(o *Offer)
		errorContains string
	}{
		{name: "valid", mutate: func(o *Offer) {}},
		{name: "zero amount", mutate: func(o *Offer) { o.Amount = decimal.Zero }, errorContains: "amount must be positive"},
		{name: "negative amount", mutate: func(o *Offer) { o.Amount = decimal.NewFromInt(-1) }, errorContains: "amount must be positive"},
		{name: "fractional amount", mutate: func(o *Offer) { o.Amount = decimal.RequireFromString("1.5") }, errorContains: "whole"},
		{name: "negative min loan", mutate: func(o *Offer) { o.MinLoanAmount = decimal.NewFromInt(-5) }, errorContains: "minLoanAmount"},
		{name: "inverted durations", mutate: func(o *Offer) { o.MinLoanDuration = o.MaxLoanDuration + 1 }, errorContains: "maxLoanDuration"},
		{name: "missing signature", mutate: func(o *Offer) { o.Signature = nil }, errorContains: "signature is required"},
		{name: "short signature", mutate: func(o *Offer) { o.Signature = []byte{1, 2, 3} }, errorContains: "65 bytes"},
		{name: "missing owner", mutate: func(o *Offer) { o.Owner = common.Address{} }, errorContains: "owner"},
		{name: "negative rate", mutate: func(o *Offer) { o.InterestRateBPS = -1 }, errorContains: "interestRateBps"},
		{name: "equal durations allowed", mutate: func(o *Offer) { o.MinLoanDuration = o.MaxLoanDuration }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := validOffer()
			tt.mutate(offer)

			err := offer.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestOffer_CapacityAndDuration(t *testing.T) {
	offer := validOffer()

	assert.True(t, offer.Capacity(decimal.NewFromInt(400)).Equal(decimal.NewFromInt(600)))
	assert.True(t, offer.Capacity(decimal.NewFromInt(1200)).IsZero())

	assert.True(t, offer.SupportsDuration(86_400))
	assert.True(t, offer.SupportsDuration(30*86_400))
	assert.False(t, offer.SupportsDuration(86_399))
	assert.False(t, offer.SupportsDuration(30*86_400+1))

	assert.False(t, offer.IsExpiredAt(1_899_999_999))
	assert.True(t, offer.IsExpiredAt(1_900_000_000))
}

func TestSubmitOfferRequest_ToOffer(t *testing.T) {
	req := &SubmitOfferRequest{
		Owner:           testOwner.Hex(),
		Token:           testToken.Hex(),
		OfferID:         3,
		Amount:          decimal.NewFromInt(500),
		InterestRateBPS: 300,
		Expiration:      1_900_000_000,
		MaxLoanDuration: 100,
		Signature:       "0xaa",
	}

	offer, err := req.ToOffer()
	require.NoError(t, err)
	assert.Equal(t, OfferKey(testOwner, testToken, 3), offer.Key)
	assert.Equal(t, []byte{0xaa}, []byte(offer.Signature))

	req.Signature = "zz"
	_, err = req.ToOffer()
	assert.Error(t, err)
}

func TestHealthRatio_JSON(t *testing.T) {
	data, err := json.Marshal(InfiniteRatio())
	require.NoError(t, err)
	assert.Equal(t, `"Infinity"`, string(data))

	data, err = json.Marshal(HealthRatio{Value: decimal.RequireFromString("1.5")})
	require.NoError(t, err)
	assert.Equal(t, `"1.5"`, string(data))

	var ratio HealthRatio
	require.NoError(t, json.Unmarshal([]byte(`"Infinity"`), &ratio))
	assert.True(t, ratio.Infinite)
	require.NoError(t, json.Unmarshal([]byte(`"0.75"`), &ratio))
	assert.False(t, ratio.Infinite)
	assert.True(t, ratio.Value.Equal(decimal.RequireFromString("0.75")))
}

func TestHealthRatio_AtLeast(t *testing.T) {
	one := decimal.NewFromInt(1)
	assert.True(t, InfiniteRatio().AtLeast(one))
	assert.True(t, HealthRatio{Value: one}.AtLeast(one))
	assert.False(t, HealthRatio{Value: decimal.RequireFromString("0.99")}.AtLeast(one))
}

func TestLoanAllocation_BlendedRate(t *testing.T) {
	a := &Offer{InterestRateBPS: 500}
	b := &Offer{InterestRateBPS: 300}
	alloc := &LoanAllocation{
		Entries: []AllocationEntry{
			{Offer: b, Amount: decimal.NewFromInt(500)},
			{Offer: a, Amount: decimal.NewFromInt(200)},
		},
		Filled:    decimal.NewFromInt(700),
		Remaining: decimal.Zero,
	}

	// (500*300 + 200*500) / 700 = 357.1429
	assert.True(t, alloc.BlendedRateBPS().Equal(decimal.RequireFromString("357.1429")))
	assert.False(t, alloc.Shortfall())

	empty := &LoanAllocation{Remaining: decimal.NewFromInt(5)}
	assert.True(t, empty.BlendedRateBPS().IsZero())
	assert.True(t, empty.Shortfall())
}
