package evm_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterykit/lottery/chain/evm"
)

func TestChain_ChainInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		selector   uint64
		wantName   string
		wantString string
		wantFamily string
	}{
		{
			name:       "returns correct info",
			selector:   chain_selectors.ETHEREUM_MAINNET.Selector,
			wantString: "ethereum-mainnet (5009297550715157269)",
			wantName:   chain_selectors.ETHEREUM_MAINNET.Name,
			wantFamily: chain_selectors.FamilyEVM,
		},
		{
			name:       "simulated chain",
			selector:   chain_selectors.GETH_TESTNET.Selector,
			wantString: "geth-testnet (3379446385462418246)",
			wantName:   chain_selectors.GETH_TESTNET.Name,
			wantFamily: chain_selectors.FamilyEVM,
		},
		{
			name:     "unknown selector",
			selector: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := evm.Chain{
				Selector: tt.selector,
			}
			assert.Equal(t, tt.selector, c.ChainSelector())
			assert.Equal(t, tt.wantString, c.String())
			assert.Equal(t, tt.wantName, c.Name())
			assert.Equal(t, tt.wantFamily, c.Family())
		})
	}
}

func TestChain_Transactors(t *testing.T) {
	t.Parallel()

	var (
		deployer = &bind.TransactOpts{From: common.HexToAddress("0x01")}
		user1    = &bind.TransactOpts{From: common.HexToAddress("0x02")}
		user2    = &bind.TransactOpts{From: common.HexToAddress("0x03")}
	)

	c := evm.Chain{DeployerKey: deployer, Users: []*bind.TransactOpts{user1, user2}}

	got := c.Transactors()
	require.Len(t, got, 3)
	assert.Equal(t, deployer.From, got[0].From)
	assert.Equal(t, user2.From, got[2].From)

	tr, ok := c.Transactor(user1.From)
	require.True(t, ok)
	assert.Same(t, user1, tr)

	_, ok = c.Transactor(common.HexToAddress("0x04"))
	assert.False(t, ok)

	assert.Empty(t, evm.Chain{}.Transactors())
}
