package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain event types
const (
	EventOfferCreated = "offer_created"
	EventOfferRevoked = "offer_revoked"
	EventLoanOpened   = "loan_opened"
)

// Event is the envelope every domain event travels in
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// NewEvent stamps a payload with an id and the current time
func NewEvent(eventType string, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type OfferCreated struct {
	Key             common.Hash     `json:"key"`
	Owner           common.Address  `json:"owner"`
	Token           common.Address  `json:"token"`
	OfferID         int64           `json:"offerId"`
	Amount          decimal.Decimal `json:"amount"`
	InterestRateBPS int64           `json:"interestRateBps"`
}

type OfferRevoked struct {
	Key          common.Hash    `json:"key"`
	Owner        common.Address `json:"owner"`
	Token        common.Address `json:"token"`
	SignedNonce  int64          `json:"signedNonce"`
	OnChainNonce int64          `json:"onChainNonce"`
}

type LoanOpened struct {
	Borrower common.Address  `json:"borrower"`
	Token    common.Address  `json:"token"`
	TxHash   common.Hash     `json:"txHash"`
	Duration int64           `json:"duration"`
	Entries  []LoanEntry     `json:"entries"`
	Total    decimal.Decimal `json:"total"`
}

type LoanEntry struct {
	OfferKey common.Hash     `json:"offerKey"`
	Lender   common.Address  `json:"lender"`
	Amount   decimal.Decimal `json:"amount"`
}
