package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/segyhp/lending-engine/internal/domain"
)

type memoryOfferRepository struct {
	mu     sync.RWMutex
	offers map[common.Hash]*domain.Offer
	seq    int64
	now    func() time.Time
}

// NewMemoryOfferRepository returns an OfferRepository kept in process memory
func NewMemoryOfferRepository() OfferRepository {
	return &memoryOfferRepository{
		offers: make(map[common.Hash]*domain.Offer),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryOfferRepository) Put(_ context.Context, offer *domain.Offer) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.offers[offer.Key]; ok {
		if existing.PayloadHash != offer.PayloadHash {
			return false, ErrDuplicateKey
		}
		*offer = *clone(existing)
		return false, nil
	}

	r.seq++
	offer.Seq = r.seq
	offer.CreatedAt = r.now()
	r.offers[offer.Key] = clone(offer)
	return true, nil
}

func (r *memoryOfferRepository) Get(_ context.Context, key common.Hash) (*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, ok := r.offers[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(offer), nil
}

func (r *memoryOfferRepository) ListByOwner(_ context.Context, owner common.Address) ([]*domain.Offer, error) {
	return r.filter(func(o *domain.Offer) bool { return o.Owner == owner }, bySeq), nil
}

func (r *memoryOfferRepository) ListByToken(_ context.Context, token common.Address) ([]*domain.Offer, error) {
	return r.filter(func(o *domain.Offer) bool { return o.Token == token && !o.IsRevoked() }, byRate), nil
}

func (r *memoryOfferRepository) ListActive(_ context.Context) ([]*domain.Offer, error) {
	return r.filter(func(o *domain.Offer) bool { return !o.IsRevoked() }, bySeq), nil
}

func (r *memoryOfferRepository) MarkRevoked(_ context.Context, key common.Hash, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	offer, ok := r.offers[key]
	if !ok {
		return ErrNotFound
	}
	if offer.RevokedAt == nil {
		revokedAt := at
		offer.RevokedAt = &revokedAt
	}
	return nil
}

func (r *memoryOfferRepository) MaxOfferID(_ context.Context, owner common.Address) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var maxID int64
	found := false
	for _, offer := range r.offers {
		if offer.Owner != owner {
			continue
		}
		if !found || offer.OfferID > maxID {
			maxID = offer.OfferID
			found = true
		}
	}
	return maxID, found, nil
}

func (r *memoryOfferRepository) filter(keep func(*domain.Offer) bool, less func(a, b *domain.Offer) bool) []*domain.Offer {
	r.mu.RLock()
	out := make([]*domain.Offer, 0, len(r.offers))
	for _, offer := range r.offers {
		if keep(offer) {
			out = append(out, clone(offer))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func bySeq(a, b *domain.Offer) bool {
	return a.Seq < b.Seq
}

func byRate(a, b *domain.Offer) bool {
	if a.InterestRateBPS != b.InterestRateBPS {
		return a.InterestRateBPS < b.InterestRateBPS
	}
	return a.Seq < b.Seq
}

func clone(o *domain.Offer) *domain.Offer {
	c := *o
	c.Signature = append([]byte(nil), o.Signature...)
	if o.RevokedAt != nil {
		revokedAt := *o.RevokedAt
		c.RevokedAt = &revokedAt
	}
	return &c
}
