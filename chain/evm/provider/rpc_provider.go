package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/lotterykit/lottery/chain"
	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/chain/utils"
	"github.com/lotterykit/lottery/pkg/logger"
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: A generator for the deployer key. Use TransactorFromRaw to create a deployer
	// key from a private key, or TransactorFromMnemonic to derive it from a mnemonic.
	DeployerTransactorGen SignerGenerator
	// Required: At least one RPC must be provided to connect to the EVM node. The first healthy
	// endpoint is used.
	RPCs []evm.RPC
	// Required: ConfirmFunctor is a type that generates a confirmation function for transactions.
	// Use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: A generator for the additional user transactors. If not provided, no user
	// transactors will be generated.
	UsersTransactorGen []SignerGenerator
	// Optional: Logger is the logger to use for the RPCChainProvider. If not provided, a default
	// logger will be used.
	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.DeployerTransactorGen == nil {
		return errors.New("deployer transactor generator is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}
	if len(c.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	return nil
}

var _ chain.Provider = (*RPCChainProvider)(nil)

// RPCChainProvider is a chain provider that provides a chain that connects to an EVM node via RPC.
type RPCChainProvider struct {
	selector uint64
	config   RPCChainProviderConfig

	chain  *evm.Chain
	client *evm.MultiClient
}

// NewRPCChainProvider creates a new RPCChainProvider with the given selector and configuration.
func NewRPCChainProvider(
	selector uint64, config RPCChainProviderConfig,
) *RPCChainProvider {
	return &RPCChainProvider{
		selector: selector,
		config:   config,
	}
}

// Initialize initializes the RPCChainProvider, setting up the EVM chain with the provided
// configuration. It returns the initialized chain.BlockChain or an error if initialization fails.
func (p *RPCChainProvider) Initialize(ctx context.Context) (chain.BlockChain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	// Set up the logger if not provided
	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	// Validate the provider configuration
	if err := p.config.validate(); err != nil {
		return nil, fmt.Errorf("failed to validate provider config: %w", err)
	}

	chainID, err := utils.EVMChainID(p.selector)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID from selector %d: %w", p.selector, err)
	}

	// Generate the deployer key using the provided transactor generator
	deployerKey, err := p.config.DeployerTransactorGen.Generate(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	// Generate the other user transactors
	users := make([]*bind.TransactOpts, 0, len(p.config.UsersTransactorGen))
	for i, g := range p.config.UsersTransactorGen {
		u, gerr := g.Generate(chainID)
		if gerr != nil {
			return nil, fmt.Errorf("failed to generate user transactor %d: %w", i, gerr)
		}

		users = append(users, u)
	}

	client, err := evm.DialMultiClient(ctx, p.config.Logger, p.selector, p.config.RPCs)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-client: %w", err)
	}

	// Setup the confirm function
	confirmFunc, err := p.config.ConfirmFunctor.Generate(
		ctx, p.selector, client, deployerKey.From,
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.config.Logger.Infow("Connected to EVM chain",
		"chain", client.ChainName(), "rpc", client.RPC.Name, "accounts", len(users)+1,
	)

	p.client = client
	p.chain = &evm.Chain{
		Selector:    p.selector,
		Client:      client,
		DeployerKey: deployerKey,
		Users:       users,
		Confirm:     confirmFunc,
	}

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}

// ChainSelector returns the chain selector of the chain managed by this provider.
func (p *RPCChainProvider) ChainSelector() uint64 {
	return p.selector
}

// BlockChain returns the chain instance managed by this provider. You must call Initialize
// before using this method to ensure the chain is properly set up.
func (p *RPCChainProvider) BlockChain() chain.BlockChain {
	return *p.chain
}

// Close closes the RPC connection, if one was made.
func (p *RPCChainProvider) Close() error {
	if p.client != nil {
		p.client.Close()
	}

	return nil
}
