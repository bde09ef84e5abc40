package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/segyhp/lending-engine/internal/domain"
)

// ErrSignerMismatch is returned when the recovered signer is not the offer owner
var ErrSignerMismatch = errors.New("chain: signer does not match offer owner")

// SignatureVerifier authenticates the owner's signature over an offer
type SignatureVerifier interface {
	Verify(offer *domain.Offer) error
}

// PersonalSignVerifier checks EIP-191 personal_sign signatures over the offer signing hash
type PersonalSignVerifier struct{}

// NewPersonalSignVerifier constructs an EIP-191 verifier
func NewPersonalSignVerifier() *PersonalSignVerifier {
	return &PersonalSignVerifier{}
}

func (PersonalSignVerifier) Verify(offer *domain.Offer) error {
	if len(offer.Signature) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, offer.Signature)
	// wallets emit V as 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest := accounts.TextHash(offer.SigningHash().Bytes())
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return fmt.Errorf("recover pubkey: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != offer.Owner {
		return ErrSignerMismatch
	}
	return nil
}

// SignOffer signs the offer the way a wallet's personal_sign does and reseals it
func SignOffer(offer *domain.Offer, key *ecdsa.PrivateKey) error {
	digest := accounts.TextHash(offer.SigningHash().Bytes())
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return fmt.Errorf("sign offer: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	offer.Signature = sig
	offer.Seal()
	return nil
}
