package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/lending-engine/internal/chain"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// FirstOfferID is handed out when an owner has no offer history anywhere
const FirstOfferID int64 = 1

// OfferIDAllocator derives the next unused offer id of an owner
type OfferIDAllocator struct {
	OfferRepo repository.OfferRepository
	reader    chain.SettlementReader
}

func NewOfferIDAllocator(offerRepo repository.OfferRepository, reader chain.SettlementReader) *OfferIDAllocator {
	return &OfferIDAllocator{
		OfferRepo: offerRepo,
		reader:    reader,
	}
}

// NextOfferID returns max(stored max, on-chain max) + 1, reading both sources concurrently.
// The id is advisory: two sessions may pick the same one and the second Put is rejected.
func (a *OfferIDAllocator) NextOfferID(ctx context.Context, owner common.Address) (int64, error) {
	var (
		storeMax, chainMax     int64
		storeFound, chainFound bool
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		maxID, found, err := a.OfferRepo.MaxOfferID(gctx, owner)
		if err != nil {
			return fmt.Errorf("offer store: %w", err)
		}
		storeMax, storeFound = maxID, found
		return nil
	})
	g.Go(func() error {
		maxID, found, err := a.reader.GetOnChainMaxOfferID(gctx, owner)
		if err != nil {
			return fmt.Errorf("loan history: %w", err)
		}
		chainMax, chainFound = maxID, found
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, customError.WrapIDAllocationUnavailable(owner.Hex(), err)
	}

	if !storeFound && !chainFound {
		return FirstOfferID, nil
	}
	highest := storeMax
	if !storeFound || (chainFound && chainMax > highest) {
		highest = chainMax
	}
	return highest + 1, nil
}
