package provider

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	chain_selectors "github.com/smartcontractkit/chain-selectors"
)

// Defines a general test EVM address
var (
	testAddr1 = common.HexToAddress("0xc1d6fEcd5D09Ad67cF5E0FC9633D89759DD84271")
)

// Defines standard variables for a test chain.
var (
	testChainID    = chain_selectors.TEST_1000.EvmChainID // Defines a standard test EVM chain ID
	testChainIDBig = new(big.Int).SetUint64(testChainID)  // Defines the testChainID in *big.Int format
)

// Well known accounts of DefaultDevMnemonic.
var (
	devAccount0    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	devAccount0Key = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAccount1    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)
