package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/segyhp/lending-engine/internal/domain"
)

var (
	// ErrNotFound is returned when no offer is stored under a key
	ErrNotFound = errors.New("repository: offer not found")

	// ErrDuplicateKey is returned when a different payload already owns the key
	ErrDuplicateKey = errors.New("repository: duplicate offer key")
)

// OfferRepository defines the interface for offer data operations
type OfferRepository interface {
	// Put stores a new offer. Re-submitting the identical payload returns
	// created=false and no error; a different payload under the same key
	// returns ErrDuplicateKey.
	Put(ctx context.Context, offer *domain.Offer) (created bool, err error)

	// Get retrieves an offer by its key
	Get(ctx context.Context, key common.Hash) (*domain.Offer, error)

	// ListByOwner retrieves every offer of an owner in insertion order, revoked ones included
	ListByOwner(ctx context.Context, owner common.Address) ([]*domain.Offer, error)

	// ListByToken retrieves non-revoked offers for a token ordered by
	// interest rate ascending, ties in insertion order
	ListByToken(ctx context.Context, token common.Address) ([]*domain.Offer, error)

	// ListActive retrieves every non-revoked offer in insertion order
	ListActive(ctx context.Context) ([]*domain.Offer, error)

	// MarkRevoked flags an offer as revoked; the row is kept
	MarkRevoked(ctx context.Context, key common.Hash, at time.Time) error

	// MaxOfferID returns the highest offer id stored for an owner, found=false if none
	MaxOfferID(ctx context.Context, owner common.Address) (maxID int64, found bool, err error)
}
