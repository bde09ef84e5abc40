package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// AllocationEntry is one offer's share of a borrow request
type AllocationEntry struct {
	Offer  *Offer          `json:"offer"`
	Amount decimal.Decimal `json:"amount"`
}

// LoanAllocation is the ordered set of offers chosen for a borrow request.
// Filled may be below Requested when usable supply runs out.
type LoanAllocation struct {
	Token     common.Address    `json:"token"`
	Requested decimal.Decimal   `json:"requested"`
	Duration  int64             `json:"duration"`
	Entries   []AllocationEntry `json:"entries"`
	Filled    decimal.Decimal   `json:"filled"`
	Remaining decimal.Decimal   `json:"remaining"`
}

// Shortfall reports whether part of the request could not be allocated
func (a *LoanAllocation) Shortfall() bool {
	return a.Remaining.IsPositive()
}

// BlendedRateBPS is the amount-weighted interest rate across entries
func (a *LoanAllocation) BlendedRateBPS() decimal.Decimal {
	if !a.Filled.IsPositive() {
		return decimal.Zero
	}
	weighted := decimal.Zero
	for _, entry := range a.Entries {
		weighted = weighted.Add(entry.Amount.Mul(decimal.NewFromInt(entry.Offer.InterestRateBPS)))
	}
	return weighted.DivRound(a.Filled, 4)
}

// DTOs for requests and responses

type QuoteRequest struct {
	Borrower string          `json:"borrower" validate:"required,eth_addr"`
	Token    string          `json:"token" validate:"required,eth_addr"`
	Amount   decimal.Decimal `json:"amount" validate:"decimal_gte=0"`
	Duration int64           `json:"duration" validate:"gte=0"`
	Strict   bool            `json:"strict"`
}

type QuoteResponse struct {
	Allocation        *LoanAllocation   `json:"allocation"`
	BlendedRateBPS    decimal.Decimal   `json:"blendedRateBps"`
	EstimatedInterest decimal.Decimal   `json:"estimatedInterest"`
	Health            *HealthAssessment `json:"health"`
	MeetsThreshold    bool              `json:"meetsThreshold"`
}

type ConfirmLoanRequest struct {
	Borrower string             `json:"borrower" validate:"required,eth_addr"`
	Token    string             `json:"token" validate:"required,eth_addr"`
	TxHash   string             `json:"txHash" validate:"required,hexadecimal,len=66"`
	Duration int64              `json:"duration" validate:"gte=0"`
	Entries  []LoanEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

type LoanEntryRequest struct {
	OfferKey string          `json:"offerKey" validate:"required,hexadecimal,len=66"`
	Amount   decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
}
