package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/observability"
)

// SettlementReader is the read-only view of the settlement layer the engine depends on.
// Every method either returns a fresh value or an error; callers never substitute defaults.
type SettlementReader interface {
	GetOfferNonce(ctx context.Context, key common.Hash) (int64, error)
	GetAmountBorrowed(ctx context.Context, key common.Hash) (decimal.Decimal, error)
	GetTokenBalance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error)
	GetTokenAllowance(ctx context.Context, owner, spender, token common.Address) (decimal.Decimal, error)
	GetAdjustedCollateralValue(ctx context.Context, account common.Address) (domain.Valuation, error)
	GetAdjustedDebtValue(ctx context.Context, account common.Address) (domain.Valuation, error)
	// GetDebtValueOf prices a prospective borrow of amount token base units
	GetDebtValueOf(ctx context.Context, token common.Address, amount decimal.Decimal) (domain.Valuation, error)
	// GetOnChainMaxOfferID returns the highest offer id the owner has lent under, found=false if none
	GetOnChainMaxOfferID(ctx context.Context, owner common.Address) (maxID int64, found bool, err error)
	ListDeposits(ctx context.Context, account common.Address) ([]domain.Deposit, error)
}

// EVMClient defines the subset of the Ethereum RPC used by the reader
type EVMClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// DialEVMClient initialises an EVM RPC client for the provided endpoint
func DialEVMClient(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, errors.New("evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// EVMReaderConfig carries the contract location and read tuning
type EVMReaderConfig struct {
	Settlement        common.Address
	StartBlock        uint64
	LogBlockBatch     uint64
	ValuationDecimals int
	CallTimeout       time.Duration
}

// EVMReader implements SettlementReader against an Ethereum node
type EVMReader struct {
	client  EVMClient
	cfg     EVMReaderConfig
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewEVMReader constructs a reader from an Ethereum client
func NewEVMReader(client EVMClient, cfg EVMReaderConfig, metrics *observability.Metrics, logger zerolog.Logger) *EVMReader {
	if cfg.LogBlockBatch == 0 {
		cfg.LogBlockBatch = 5000
	}
	return &EVMReader{
		client:  client,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

func (r *EVMReader) GetOfferNonce(ctx context.Context, key common.Hash) (int64, error) {
	values, err := r.call(ctx, r.cfg.Settlement, settlementABI, "getNonce", [32]byte(key))
	if err != nil {
		return 0, err
	}
	nonce := values[0].(*big.Int)
	if !nonce.IsInt64() {
		return 0, fmt.Errorf("nonce for %s out of range: %s", key.Hex(), nonce)
	}
	return nonce.Int64(), nil
}

func (r *EVMReader) GetAmountBorrowed(ctx context.Context, key common.Hash) (decimal.Decimal, error) {
	values, err := r.call(ctx, r.cfg.Settlement, settlementABI, "amountBorrowed", [32]byte(key))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(values[0].(*big.Int), 0), nil
}

func (r *EVMReader) GetTokenBalance(ctx context.Context, owner, token common.Address) (decimal.Decimal, error) {
	values, err := r.call(ctx, token, erc20ABI, "balanceOf", owner)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(values[0].(*big.Int), 0), nil
}

func (r *EVMReader) GetTokenAllowance(ctx context.Context, owner, spender, token common.Address) (decimal.Decimal, error) {
	values, err := r.call(ctx, token, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(values[0].(*big.Int), 0), nil
}

func (r *EVMReader) GetAdjustedCollateralValue(ctx context.Context, account common.Address) (domain.Valuation, error) {
	return r.valuation(ctx, "getAdjustedCollateralValue", account)
}

func (r *EVMReader) GetAdjustedDebtValue(ctx context.Context, account common.Address) (domain.Valuation, error) {
	return r.valuation(ctx, "getAdjustedDebtValue", account)
}

func (r *EVMReader) GetDebtValueOf(ctx context.Context, token common.Address, amount decimal.Decimal) (domain.Valuation, error) {
	if amount.IsNegative() {
		return domain.Valuation{}, fmt.Errorf("amount must not be negative: %s", amount)
	}
	return r.valuation(ctx, "getDebtValue", token, amount.BigInt())
}

// GetOnChainMaxOfferID scans LoanStarted logs naming owner as lender, in block batches
func (r *EVMReader) GetOnChainMaxOfferID(ctx context.Context, owner common.Address) (int64, bool, error) {
	head, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("fetch head: %w", err)
	}

	lenderTopic := common.BytesToHash(owner.Bytes())
	var (
		maxID int64
		found bool
	)
	for from := r.cfg.StartBlock; from <= head; from += r.cfg.LogBlockBatch {
		to := from + r.cfg.LogBlockBatch - 1
		if to > head {
			to = head
		}

		logs, err := r.filterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{r.cfg.Settlement},
			Topics:    [][]common.Hash{{loanStartedTopic}, nil, {lenderTopic}},
		})
		if err != nil {
			return 0, false, fmt.Errorf("scan blocks %d-%d: %w", from, to, err)
		}

		for _, lg := range logs {
			if lg.Removed {
				continue
			}
			started, err := decodeLoanStarted(lg)
			if err != nil {
				return 0, false, err
			}
			if !found || started.OfferID > maxID {
				maxID = started.OfferID
				found = true
			}
		}
	}

	r.logger.Debug().
		Str("owner", owner.Hex()).
		Uint64("head", head).
		Int64("max_offer_id", maxID).
		Bool("found", found).
		Msg("scanned loan history")
	return maxID, found, nil
}

func (r *EVMReader) ListDeposits(ctx context.Context, account common.Address) ([]domain.Deposit, error) {
	values, err := r.call(ctx, r.cfg.Settlement, settlementABI, "getDeposits", account)
	if err != nil {
		return nil, err
	}

	assets := values[0].([]common.Address)
	amounts := values[1].([]*big.Int)
	positionIDs := values[2].([]*big.Int)
	if len(assets) != len(amounts) || len(assets) != len(positionIDs) {
		return nil, fmt.Errorf("getDeposits returned mismatched arrays: %d/%d/%d", len(assets), len(amounts), len(positionIDs))
	}

	deposits := make([]domain.Deposit, 0, len(assets))
	for i, asset := range assets {
		deposit := domain.Deposit{
			Asset:  asset,
			Kind:   domain.DepositKindToken,
			Amount: decimal.NewFromBigInt(amounts[i], 0),
		}
		if positionIDs[i].Sign() > 0 {
			deposit.Kind = domain.DepositKindPosition
			deposit.PositionID = positionIDs[i].String()
		}
		deposits = append(deposits, deposit)
	}
	return deposits, nil
}

func (r *EVMReader) valuation(ctx context.Context, method string, args ...interface{}) (domain.Valuation, error) {
	values, err := r.call(ctx, r.cfg.Settlement, settlementABI, method, args...)
	if err != nil {
		return domain.Valuation{}, err
	}
	return domain.Valuation{
		Raw:      r.scale(values[0].(*big.Int)),
		Adjusted: r.scale(values[1].(*big.Int)),
	}, nil
}

func (r *EVMReader) scale(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -int32(r.cfg.ValuationDecimals))
}

func (r *EVMReader) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	if r.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	r.observe(method, start, err)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (r *EVMReader) filterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	if r.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	logs, err := r.client.FilterLogs(ctx, q)
	r.observe("filterLogs", start, err)
	return logs, err
}

func (r *EVMReader) observe(method string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.metrics.SettlementCalls.WithLabelValues(method, outcome).Inc()
	r.metrics.SettlementDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// LoanStarted is a decoded settlement LoanStarted log
type LoanStarted struct {
	Borrower common.Address
	Lender   common.Address
	Token    common.Address
	OfferID  int64
	Amount   decimal.Decimal
}

func decodeLoanStarted(lg gethtypes.Log) (*LoanStarted, error) {
	if len(lg.Topics) < 4 || lg.Topics[0] != loanStartedTopic {
		return nil, fmt.Errorf("log %s/%d is not LoanStarted", lg.TxHash.Hex(), lg.Index)
	}
	values, err := settlementABI.Unpack("LoanStarted", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack LoanStarted: %w", err)
	}
	offerID := values[0].(*big.Int)
	if !offerID.IsInt64() {
		return nil, fmt.Errorf("offer id out of range: %s", offerID)
	}
	return &LoanStarted{
		Borrower: common.BytesToAddress(lg.Topics[1].Bytes()),
		Lender:   common.BytesToAddress(lg.Topics[2].Bytes()),
		Token:    common.BytesToAddress(lg.Topics[3].Bytes()),
		OfferID:  offerID.Int64(),
		Amount:   decimal.NewFromBigInt(values[1].(*big.Int), 0),
	}, nil
}
