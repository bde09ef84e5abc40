package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// TxConfirmer checks that a loan transaction executed on the settlement contract
type TxConfirmer interface {
	Confirm(ctx context.Context, txHash common.Hash) ([]LoanStarted, error)
}

// ReceiptConfirmer implements TxConfirmer with transaction receipts
type ReceiptConfirmer struct {
	client     EVMClient
	settlement common.Address
}

// NewReceiptConfirmer constructs a confirmer from an Ethereum client
func NewReceiptConfirmer(client EVMClient, settlement common.Address) *ReceiptConfirmer {
	return &ReceiptConfirmer{client: client, settlement: settlement}
}

// Confirm returns the LoanStarted logs of a successful transaction
func (c *ReceiptConfirmer) Confirm(ctx context.Context, txHash common.Hash) ([]LoanStarted, error) {
	if (txHash == common.Hash{}) {
		return nil, errors.New("tx hash required")
	}

	receipt, err := c.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction %s not found", txHash.Hex())
		}
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt == nil {
		return nil, errors.New("transaction receipt missing")
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s failed", txHash.Hex())
	}

	var started []LoanStarted
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != c.settlement {
			continue
		}
		if len(lg.Topics) == 0 || lg.Topics[0] != loanStartedTopic {
			continue
		}
		decoded, err := decodeLoanStarted(*lg)
		if err != nil {
			return nil, err
		}
		started = append(started, *decoded)
	}
	if len(started) == 0 {
		return nil, fmt.Errorf("no LoanStarted event in %s", txHash.Hex())
	}
	return started, nil
}
