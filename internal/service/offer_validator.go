package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
)

// IsUsable decides whether an offer can fund a loan right now.
// It is pure: the caller supplies the live snapshot and the clock.
func IsUsable(offer *domain.Offer, state domain.LiveState, now time.Time) bool {
	if state.Nonce != offer.Nonce {
		return false
	}
	if offer.IsExpiredAt(now.Unix()) {
		return false
	}

	outstanding := offer.Amount.Sub(state.AmountBorrowed)
	return state.Allowance.GreaterThanOrEqual(outstanding) && state.Balance.GreaterThanOrEqual(outstanding)
}

// NewOfferView annotates an offer with its usability and borrowable amount
func NewOfferView(offer *domain.Offer, state domain.LiveState, now time.Time) domain.OfferView {
	view := domain.OfferView{
		Offer:     offer,
		Usable:    IsUsable(offer, state, now),
		Available: decimal.Zero,
		LiveState: state,
	}
	if view.Usable {
		view.Available = offer.Capacity(state.AmountBorrowed)
	}
	return view
}
