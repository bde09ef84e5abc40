package domain

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// SignatureLength is the size of a recoverable secp256k1 signature [R || S || V]
const SignatureLength = 65

// Offer represents a lender's signed standing willingness to lend
type Offer struct {
	Key             common.Hash     `json:"key"`
	Owner           common.Address  `json:"owner"`
	Token           common.Address  `json:"token"`
	OfferID         int64           `json:"offerId"`
	Nonce           int64           `json:"nonce"`
	MinLoanAmount   decimal.Decimal `json:"minLoanAmount"`
	Amount          decimal.Decimal `json:"amount"`
	InterestRateBPS int64           `json:"interestRateBps"`
	Expiration      int64           `json:"expiration"`
	MinLoanDuration int64           `json:"minLoanDuration"`
	MaxLoanDuration int64           `json:"maxLoanDuration"`
	Signature       hexutil.Bytes   `json:"signature"`
	PayloadHash     common.Hash     `json:"payloadHash"`
	Seq             int64           `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	RevokedAt       *time.Time      `json:"revokedAt,omitempty"`
}

// OfferKey derives the canonical lookup key keccak256(owner || token || uint256(offerId))
func OfferKey(owner, token common.Address, offerID int64) common.Hash {
	return crypto.Keccak256Hash(
		owner.Bytes(),
		token.Bytes(),
		word(big.NewInt(offerID)),
	)
}

// SigningHash is the hash the owner signs; it covers every signed field but not the signature
func (o *Offer) SigningHash() common.Hash {
	return crypto.Keccak256Hash(
		o.Owner.Bytes(),
		o.Token.Bytes(),
		word(big.NewInt(o.OfferID)),
		word(big.NewInt(o.Nonce)),
		word(o.MinLoanAmount.BigInt()),
		word(o.Amount.BigInt()),
		word(big.NewInt(o.InterestRateBPS)),
		word(big.NewInt(o.Expiration)),
		word(big.NewInt(o.MinLoanDuration)),
		word(big.NewInt(o.MaxLoanDuration)),
	)
}

// ComputePayloadHash hashes the full submitted payload, signature included
func (o *Offer) ComputePayloadHash() common.Hash {
	signing := o.SigningHash()
	return crypto.Keccak256Hash(signing.Bytes(), o.Signature)
}

// Seal fills the derived key and payload hash from the signed fields
func (o *Offer) Seal() {
	o.Key = OfferKey(o.Owner, o.Token, o.OfferID)
	o.PayloadHash = o.ComputePayloadHash()
}

// Validate checks the structural invariants of a submitted offer
func (o *Offer) Validate() error {
	if o.Owner == (common.Address{}) {
		return errors.New("owner is required")
	}
	if o.Token == (common.Address{}) {
		return errors.New("token is required")
	}
	if o.OfferID < 0 {
		return errors.New("offerId must not be negative")
	}
	if o.Nonce < 0 {
		return errors.New("nonce must not be negative")
	}
	if !o.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if o.MinLoanAmount.IsNegative() {
		return errors.New("minLoanAmount must not be negative")
	}
	if !isWhole(o.Amount) || !isWhole(o.MinLoanAmount) {
		return errors.New("amounts must be whole token base units")
	}
	if o.InterestRateBPS < 0 {
		return errors.New("interestRateBps must not be negative")
	}
	if o.Expiration <= 0 {
		return errors.New("expiration is required")
	}
	if o.MinLoanDuration < 0 {
		return errors.New("minLoanDuration must not be negative")
	}
	if o.MinLoanDuration > o.MaxLoanDuration {
		return errors.New("minLoanDuration must not exceed maxLoanDuration")
	}
	if len(o.Signature) == 0 {
		return errors.New("signature is required")
	}
	if len(o.Signature) != SignatureLength {
		return errors.New("signature must be 65 bytes")
	}
	return nil
}

// IsRevoked reports whether the reconciler has marked the offer as revoked
func (o *Offer) IsRevoked() bool {
	return o.RevokedAt != nil
}

// IsExpiredAt reports whether the offer is unusable at the given unix time
func (o *Offer) IsExpiredAt(now int64) bool {
	return now >= o.Expiration
}

// SupportsDuration checks the requested duration against the offer bounds
func (o *Offer) SupportsDuration(duration int64) bool {
	return duration >= o.MinLoanDuration && duration <= o.MaxLoanDuration
}

// Capacity returns the principal still available once amountBorrowed is drawn
func (o *Offer) Capacity(amountBorrowed decimal.Decimal) decimal.Decimal {
	capacity := o.Amount.Sub(amountBorrowed)
	if capacity.IsNegative() {
		return decimal.Zero
	}
	return capacity
}

func word(v *big.Int) []byte {
	u, _ := uint256.FromBig(v)
	b := u.Bytes32()
	return b[:]
}

func isWhole(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

// LiveState is the point-in-time chain snapshot an offer is judged against
type LiveState struct {
	Nonce          int64           `json:"nonce"`
	AmountBorrowed decimal.Decimal `json:"amountBorrowed"`
	Balance        decimal.Decimal `json:"balance"`
	Allowance      decimal.Decimal `json:"allowance"`
}

// OfferView is an offer annotated with its live usability
type OfferView struct {
	Offer     *Offer          `json:"offer"`
	Usable    bool            `json:"usable"`
	Available decimal.Decimal `json:"available"`
	LiveState LiveState       `json:"liveState"`
}

// DTOs for requests and responses

type SubmitOfferRequest struct {
	Owner           string          `json:"owner" validate:"required,eth_addr"`
	Token           string          `json:"token" validate:"required,eth_addr"`
	OfferID         int64           `json:"offerId" validate:"gte=0"`
	Nonce           int64           `json:"nonce" validate:"gte=0"`
	MinLoanAmount   decimal.Decimal `json:"minLoanAmount" validate:"decimal_gte=0"`
	Amount          decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	InterestRateBPS int64           `json:"interestRateBps" validate:"gte=0"`
	Expiration      int64           `json:"expiration" validate:"gt=0"`
	MinLoanDuration int64           `json:"minLoanDuration" validate:"gte=0"`
	MaxLoanDuration int64           `json:"maxLoanDuration" validate:"gtefield=MinLoanDuration"`
	Signature       string          `json:"signature" validate:"required,hexadecimal"`
}

// ToOffer converts the request into a sealed offer; the signature must be hex
func (r *SubmitOfferRequest) ToOffer() (*Offer, error) {
	signature, err := hexutil.Decode(r.Signature)
	if err != nil {
		return nil, errors.New("signature must be 0x-prefixed hex")
	}
	if !common.IsHexAddress(r.Owner) || !common.IsHexAddress(r.Token) {
		return nil, errors.New("owner and token must be hex addresses")
	}

	offer := &Offer{
		Owner:           common.HexToAddress(r.Owner),
		Token:           common.HexToAddress(r.Token),
		OfferID:         r.OfferID,
		Nonce:           r.Nonce,
		MinLoanAmount:   r.MinLoanAmount,
		Amount:          r.Amount,
		InterestRateBPS: r.InterestRateBPS,
		Expiration:      r.Expiration,
		MinLoanDuration: r.MinLoanDuration,
		MaxLoanDuration: r.MaxLoanDuration,
		Signature:       signature,
	}
	offer.Seal()
	return offer, nil
}

type SubmitOfferResponse struct {
	Offer   *Offer `json:"offer"`
	Created bool   `json:"created"`
}

type NextOfferIDResponse struct {
	Owner       common.Address `json:"owner"`
	NextOfferID int64          `json:"nextOfferId"`
}
