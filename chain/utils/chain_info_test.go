package utils_test

import (
	"testing"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterykit/lottery/chain/utils"
)

func TestChainInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		selector      uint64
		expectError   string
		validateChain func(t *testing.T, info chainsel.ChainDetails)
	}{
		{
			name:     "returns details for valid chain selector",
			selector: chainsel.GETH_TESTNET.Selector,
			validateChain: func(t *testing.T, info chainsel.ChainDetails) {
				t.Helper()
				assert.Equal(t, chainsel.GETH_TESTNET.Name, info.ChainName)
				assert.Equal(t, chainsel.GETH_TESTNET.Selector, info.ChainSelector)
			},
		},
		{
			name:        "returns error for invalid chain selector",
			selector:    0,
			expectError: "unknown chain selector 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info, err := utils.ChainInfo(tt.selector)

			if len(tt.expectError) > 0 {
				assert.ErrorContains(t, err, tt.expectError)
				return
			}

			require.NoError(t, err)
			if tt.validateChain != nil {
				tt.validateChain(t, info)
			}
		})
	}
}

func TestEVMChainID(t *testing.T) {
	t.Parallel()

	id, err := utils.EVMChainID(chainsel.GETH_TESTNET.Selector)
	require.NoError(t, err)
	assert.Equal(t, "1337", id.String())

	_, err = utils.EVMChainID(chainsel.SOLANA_DEVNET.Selector)
	require.ErrorContains(t, err, "only \"evm\" is supported")

	_, err = utils.EVMChainID(0)
	require.Error(t, err)
}

func TestEVMSelector(t *testing.T) {
	t.Parallel()

	sel, err := utils.EVMSelector("1337")
	require.NoError(t, err)
	assert.Equal(t, chainsel.GETH_TESTNET.Selector, sel)

	_, err = utils.EVMSelector("not-a-chain")
	require.ErrorContains(t, err, "no EVM chain selector")
}
