package service

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/mocks"
)

const (
	day        = int64(24 * 60 * 60)
	farFuture  = int64(4_000_000_000)
	oneYearSec = int64(365 * 24 * 60 * 60)
)

var (
	lenderA    = common.HexToAddress("0xa000000000000000000000000000000000000001")
	lenderB    = common.HexToAddress("0xb000000000000000000000000000000000000002")
	lenderC    = common.HexToAddress("0xc000000000000000000000000000000000000003")
	borrower   = common.HexToAddress("0xd000000000000000000000000000000000000004")
	token      = common.HexToAddress("0xe000000000000000000000000000000000000005")
	settlement = common.HexToAddress("0xf000000000000000000000000000000000000006")
)

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func decimalEq(expected decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(expected) })
}

func makeOffer(owner common.Address, offerID, rateBPS, offerAmount, minLoan int64) *domain.Offer {
	offer := &domain.Offer{
		Owner:           owner,
		Token:           token,
		OfferID:         offerID,
		MinLoanAmount:   amount(minLoan),
		Amount:          amount(offerAmount),
		InterestRateBPS: rateBPS,
		Expiration:      farFuture,
		MinLoanDuration: 0,
		MaxLoanDuration: 400 * day,
		Signature:       make([]byte, domain.SignatureLength),
	}
	offer.Seal()
	return offer
}

func freshState(offer *domain.Offer) domain.LiveState {
	return domain.LiveState{
		Nonce:          offer.Nonce,
		AmountBorrowed: decimal.Zero,
		Balance:        offer.Amount,
		Allowance:      offer.Amount,
	}
}

func stubLiveState(reader *mocks.MockSettlementReader, offer *domain.Offer, state domain.LiveState) {
	reader.On("GetOfferNonce", mock.Anything, offer.Key).Return(state.Nonce, nil).Maybe()
	reader.On("GetAmountBorrowed", mock.Anything, offer.Key).Return(state.AmountBorrowed, nil).Maybe()
	reader.On("GetTokenBalance", mock.Anything, offer.Owner, offer.Token).Return(state.Balance, nil).Maybe()
	reader.On("GetTokenAllowance", mock.Anything, offer.Owner, settlement, offer.Token).Return(state.Allowance, nil).Maybe()
}

func stubValuations(reader *mocks.MockSettlementReader, account common.Address, collateral, debt int64) {
	reader.On("GetAdjustedCollateralValue", mock.Anything, account).
		Return(domain.Valuation{Raw: amount(collateral), Adjusted: amount(collateral)}, nil).Maybe()
	reader.On("GetAdjustedDebtValue", mock.Anything, account).
		Return(domain.Valuation{Raw: amount(debt), Adjusted: amount(debt)}, nil).Maybe()
}

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{MinHealthFactor: "1.0"},
	}
}

func newTestFetcher(reader *mocks.MockSettlementReader) *LiveStateFetcher {
	return NewLiveStateFetcher(reader, settlement, 4, zerolog.Nop())
}
