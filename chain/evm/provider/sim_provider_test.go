package provider

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterykit/lottery/chain/evm"
)

func Test_SimChainProvider_Initialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		giveConfig     SimChainProviderConfig
		wantMinedBlock bool // Indicates whether a block should be mined automatically after initialization.
		wantDeployer   common.Address
		wantUser0      common.Address
		wantErr        string
	}{
		{
			name: "valid initialization",
			giveConfig: SimChainProviderConfig{
				NumAdditionalAccounts: 1,
			},
		},
		{
			name: "valid initialization with automated block mining",
			giveConfig: SimChainProviderConfig{
				BlockTime: 10 * time.Millisecond,
			},
			wantMinedBlock: true,
		},
		{
			name: "accounts derived from mnemonic",
			giveConfig: SimChainProviderConfig{
				NumAdditionalAccounts: 2,
				Mnemonic:              DefaultDevMnemonic,
			},
			wantDeployer: devAccount0,
			wantUser0:    devAccount1,
		},
		{
			name: "invalid mnemonic",
			giveConfig: SimChainProviderConfig{
				Mnemonic: "not a mnemonic",
			},
			wantErr: "invalid mnemonic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewSimChainProvider(SimSelector, tt.giveConfig)
			t.Cleanup(func() { require.NoError(t, p.Close()) })

			got, err := p.Initialize(t.Context())
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, p.chain)

			gotChain, ok := got.(evm.Chain)
			require.True(t, ok, "expected got to be of type evm.Chain")

			assert.Equal(t, SimSelector, gotChain.Selector)
			assert.NotNil(t, gotChain.Client)
			assert.NotNil(t, gotChain.DeployerKey)
			assert.Len(t, gotChain.Users, int(tt.giveConfig.NumAdditionalAccounts)) //nolint:gosec // G115 overflow issue will not occur here
			assert.NotNil(t, gotChain.Confirm)

			if tt.wantDeployer != (common.Address{}) {
				assert.Equal(t, tt.wantDeployer, gotChain.DeployerKey.From)
				assert.Equal(t, tt.wantUser0, gotChain.Users[0].From)
			}

			// Every account is prefunded
			for _, tr := range gotChain.Transactors() {
				bal, berr := gotChain.Client.BalanceAt(t.Context(), tr.From, nil)
				require.NoError(t, berr)
				assert.Equal(t, prefundAmountWei.String(), bal.String())
			}

			// Check for the automated block mining if configured
			if tt.wantMinedBlock {
				c, ok := gotChain.Client.(*SimClient)
				require.True(t, ok, "expected gotChain.Client to be of type SimClient")

				assert.Eventually(t, func() bool {
					blockNum, err := c.BlockNumber(t.Context())
					if err != nil {
						return false
					}

					return blockNum > 1 // We commit the genesis block, so we expect at least 2 blocks (genesis + 1 mined block)
				}, 1*time.Second, 10*time.Millisecond)
			}

			// Initializing again returns the same chain
			again, err := p.Initialize(t.Context())
			require.NoError(t, err)
			assert.Equal(t, gotChain.DeployerKey.From, again.(evm.Chain).DeployerKey.From)
		})
	}
}

func Test_SimChainProvider_Confirm(t *testing.T) {
	t.Parallel()

	p := NewSimChainProvider(SimSelector, SimChainProviderConfig{NumAdditionalAccounts: 1})
	t.Cleanup(func() { require.NoError(t, p.Close()) })

	bc, err := p.Initialize(t.Context())
	require.NoError(t, err)
	c := bc.(evm.Chain)

	_, err = c.Confirm(nil)
	require.ErrorContains(t, err, "tx was nil")

	// Transfer from the deployer to the user; Confirm mines the block.
	client := c.Client
	nonce, err := client.PendingNonceAt(t.Context(), c.DeployerKey.From)
	require.NoError(t, err)
	gasPrice, err := client.SuggestGasPrice(t.Context())
	require.NoError(t, err)

	tx := types.NewTransaction(nonce, c.Users[0].From, big.NewInt(1), 21000, gasPrice, nil)
	signed, err := c.DeployerKey.Signer(c.DeployerKey.From, tx)
	require.NoError(t, err)
	require.NoError(t, client.SendTransaction(t.Context(), signed))

	blockNum, err := c.Confirm(signed)
	require.NoError(t, err)
	assert.Positive(t, blockNum)
}

func Test_SimChainProvider_Name(t *testing.T) {
	t.Parallel()

	p := &SimChainProvider{}
	assert.Equal(t, "Simulated EVM Chain Provider", p.Name())
}

func Test_SimChainProvider_ChainSelector(t *testing.T) {
	t.Parallel()

	p := &SimChainProvider{selector: chain_selectors.TEST_1000.Selector}
	assert.Equal(t, chain_selectors.TEST_1000.Selector, p.ChainSelector())
}

func Test_SimChainProvider_BlockChain(t *testing.T) {
	t.Parallel()

	chain := &evm.Chain{}

	p := &SimChainProvider{
		chain: chain,
	}

	assert.Equal(t, *chain, p.BlockChain())
}

func Test_SimChainProvider_CloseBeforeInitialize(t *testing.T) {
	t.Parallel()

	p := NewSimChainProvider(SimSelector, SimChainProviderConfig{})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
