package chain

import (
	"github.com/lotterykit/lottery/chain/evm"
)

var _ BlockChain = evm.Chain{}

// BlockChain identifies the chain a lottery lives on.
type BlockChain interface {
	// String returns chain name and selector "<name> (<selector>)"
	String() string
	// Name returns the chain-selectors name, e.g. "geth-testnet"
	Name() string
	ChainSelector() uint64
	// Family is the chain-selectors family, e.g. "evm"
	Family() string
}
