package chain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReceiptConfirmer_Confirm(t *testing.T) {
	txHash := common.HexToHash("0xfeed")

	t.Run("successful loan", func(t *testing.T) {
		client := new(mockEVMClient)
		confirmer := NewReceiptConfirmer(client, settlementAddr)

		started := loanStartedLog(t, lender, 4, 300)
		foreign := loanStartedLog(t, lender, 9, 1)
		foreign.Address = common.HexToAddress("0x01")
		client.On("TransactionReceipt", mock.Anything, txHash).Return(&gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
			Logs:   []*gethtypes.Log{&started, &foreign, nil},
		}, nil)

		loans, err := confirmer.Confirm(context.Background(), txHash)
		require.NoError(t, err)
		require.Len(t, loans, 1)
		assert.Equal(t, lender, loans[0].Lender)
		assert.Equal(t, borrower, loans[0].Borrower)
		assert.Equal(t, token, loans[0].Token)
		assert.Equal(t, int64(4), loans[0].OfferID)
		assert.True(t, loans[0].Amount.Equal(decimal.NewFromInt(300)))
	})

	t.Run("reverted transaction", func(t *testing.T) {
		client := new(mockEVMClient)
		confirmer := NewReceiptConfirmer(client, settlementAddr)
		client.On("TransactionReceipt", mock.Anything, txHash).Return(&gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusFailed,
		}, nil)

		_, err := confirmer.Confirm(context.Background(), txHash)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed")
	})

	t.Run("unknown transaction", func(t *testing.T) {
		client := new(mockEVMClient)
		confirmer := NewReceiptConfirmer(client, settlementAddr)
		client.On("TransactionReceipt", mock.Anything, txHash).Return(nil, ethereum.NotFound)

		_, err := confirmer.Confirm(context.Background(), txHash)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("no loan events", func(t *testing.T) {
		client := new(mockEVMClient)
		confirmer := NewReceiptConfirmer(client, settlementAddr)
		client.On("TransactionReceipt", mock.Anything, txHash).Return(&gethtypes.Receipt{
			Status: gethtypes.ReceiptStatusSuccessful,
		}, nil)

		_, err := confirmer.Confirm(context.Background(), txHash)
		assert.Error(t, err)
	})

	t.Run("empty hash", func(t *testing.T) {
		confirmer := NewReceiptConfirmer(new(mockEVMClient), settlementAddr)
		_, err := confirmer.Confirm(context.Background(), common.Hash{})
		assert.Error(t, err)
	})
}
