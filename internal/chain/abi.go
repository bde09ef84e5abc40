package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const settlementABIJSON = `[
	{"type":"function","name":"getNonce","stateMutability":"view",
	 "inputs":[{"name":"offerKey","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"amountBorrowed","stateMutability":"view",
	 "inputs":[{"name":"offerKey","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getAdjustedCollateralValue","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"raw","type":"uint256"},{"name":"adjusted","type":"uint256"}]},
	{"type":"function","name":"getAdjustedDebtValue","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"raw","type":"uint256"},{"name":"adjusted","type":"uint256"}]},
	{"type":"function","name":"getDebtValue","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"raw","type":"uint256"},{"name":"adjusted","type":"uint256"}]},
	{"type":"function","name":"getDeposits","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"assets","type":"address[]"},{"name":"amounts","type":"uint256[]"},{"name":"positionIds","type":"uint256[]"}]},
	{"type":"event","name":"LoanStarted","anonymous":false,
	 "inputs":[
		{"name":"borrower","type":"address","indexed":true},
		{"name":"lender","type":"address","indexed":true},
		{"name":"token","type":"address","indexed":true},
		{"name":"offerId","type":"uint256","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	settlementABI = mustParseABI(settlementABIJSON)
	erc20ABI      = mustParseABI(erc20ABIJSON)

	loanStartedTopic = settlementABI.Events["LoanStarted"].ID
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid abi: " + err.Error())
	}
	return parsed
}
