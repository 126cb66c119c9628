package provider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/lotterykit/lottery/chain"
	"github.com/lotterykit/lottery/chain/evm"
)

var (
	// simChainID is the chain ID for the simulated EVM chain. This is always set to 1337 across
	// all instances of EVM Simulated Chains.
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is the amount every generated account starts with, 1,000,000 ether.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimSelector is the chain selector whose chain ID matches the simulated chain.
var SimSelector = chainsel.GETH_TESTNET.Selector

const simBlockGasLimit = 50_000_000

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: NumAdditionalAccounts is the number of additional accounts to generate for the
	// simulated chain.
	NumAdditionalAccounts uint
	// Optional: BlockTime configures the time between blocks being committed. By default, this is
	// set to 0s, meaning that blocks are not mined automatically and you must call the Commit
	// method on the Simulated Backend to produce a new block.
	BlockTime time.Duration
	// Optional: Mnemonic derives the deployer (index 0) and the additional accounts (index 1..n)
	// from a BIP39 mnemonic instead of random keys.
	Mnemonic string
}

var _ chain.Provider = (*SimChainProvider)(nil)

// SimChainProvider manages an Simulated EVM chain that is backed by go-ethereum's in memory
// simulated backend.
type SimChainProvider struct {
	selector uint64
	config   SimChainProviderConfig

	chain     *evm.Chain
	client    *SimClient
	stopMine  context.CancelFunc
	closeOnce sync.Once
}

// NewSimChainProvider creates a new SimChainProvider with the given selector and configuration.
func NewSimChainProvider(selector uint64, config SimChainProviderConfig) *SimChainProvider {
	return &SimChainProvider{
		selector: selector,
		config:   config,
	}
}

// Initialize sets up the simulated chain with a deployer account and additional accounts as
// specified in the configuration. It returns an initialized evm.Chain instance that can be used
// to interact with the simulated chain.
//
// Each account is prefunded with 1,000,000 Ether. When BlockTime is set, blocks are mined until
// ctx is done or Close is called.
func (p *SimChainProvider) Initialize(ctx context.Context) (chain.BlockChain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	keys, err := p.generateKeys()
	if err != nil {
		return nil, err
	}

	genesis := types.GenesisAlloc{}
	transactors := make([]*bind.TransactOpts, 0, len(keys))
	for _, key := range keys {
		transactor, terr := bind.NewKeyedTransactorWithChainID(key, simChainID)
		if terr != nil {
			return nil, fmt.Errorf("failed to create transactor: %w", terr)
		}

		transactors = append(transactors, transactor)
		genesis[transactor.From] = types.Account{Balance: prefundAmountWei}
	}

	// Initialize the simulated backend with the genesis state
	backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(simBlockGasLimit))

	client, err := NewSimClient(backend)
	if err != nil {
		return nil, err
	}
	client.Commit() // Commit the genesis block

	if p.config.BlockTime > 0 {
		mineCtx, cancel := context.WithCancel(ctx)
		p.stopMine = cancel
		startAutoMine(mineCtx, client, p.config.BlockTime)
	}

	deployer := transactors[0]
	p.client = client
	p.chain = &evm.Chain{
		Selector:    p.selector,
		Client:      client,
		DeployerKey: deployer,
		Users:       transactors[1:],
		Confirm: func(tx *types.Transaction) (uint64, error) {
			if tx == nil {
				return 0, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", p.selector)
			}

			// Ensure the transaction is mined by committing a new block
			client.Commit()

			waitCtx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()

			receipt, err := bind.WaitMined(waitCtx, client, tx)
			if err != nil {
				return 0, fmt.Errorf("tx %s failed to confirm for selector %d: %w",
					tx.Hash().Hex(), p.selector, err,
				)
			}

			return checkReceipt(waitCtx, p.selector, client, deployer.From, tx, receipt)
		},
	}

	return *p.chain, nil
}

// generateKeys returns the deployer key followed by the additional account keys.
func (p *SimChainProvider) generateKeys() ([]*ecdsa.PrivateKey, error) {
	n := p.config.NumAdditionalAccounts + 1
	keys := make([]*ecdsa.PrivateKey, 0, n)

	for i := range n {
		var (
			key *ecdsa.PrivateKey
			err error
		)
		if p.config.Mnemonic != "" {
			key, err = DeriveMnemonicKey(p.config.Mnemonic, uint32(i)) //nolint:gosec // account counts are small
		} else {
			key, err = crypto.GenerateKey()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to generate key for account %d: %w", i, err)
		}

		keys = append(keys, key)
	}

	return keys, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// ChainSelector returns the chain selector of the simulated chain managed by this provider.
func (p *SimChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns the simulated chain instance managed by this provider. You must call Initialize
// before using this method to ensure the chain is properly set up.
func (p *SimChainProvider) BlockChain() chain.BlockChain {
	return *p.chain
}

// Close stops block production and shuts the simulated backend down. It is safe to call more
// than once, and before Initialize.
func (p *SimChainProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.stopMine != nil {
			p.stopMine()
		}
		if p.client != nil {
			err = p.client.Close()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to close simulated backend: %w", err)
	}

	return nil
}

// startAutoMine commits a new block every blockTime until ctx is done.
func startAutoMine(ctx context.Context, client *SimClient, blockTime time.Duration) {
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				client.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
