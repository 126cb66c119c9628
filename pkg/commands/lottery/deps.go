// Package lottery provides the CLI commands that deploy, inspect, play and serve the lottery.
package lottery

import (
	"context"
	"fmt"
	"time"

	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/chain/evm/provider"
	"github.com/lotterykit/lottery/config"
	"github.com/lotterykit/lottery/pkg/logger"
)

// CloseFunc releases a loaded chain.
type CloseFunc func() error

// ConfigLoaderFunc loads the configuration from the file at path. A missing file falls back to
// environment variables.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// ChainLoaderFunc connects to the chain described by cfg.
type ChainLoaderFunc func(ctx context.Context, cfg *config.Config, lggr logger.Logger) (evm.Chain, CloseFunc, error)

// DevChainLoaderFunc starts a throwaway chain for `serve --dev`.
type DevChainLoaderFunc func(ctx context.Context, lggr logger.Logger) (evm.Chain, CloseFunc, error)

// devBlockTime is how often the dev chain mines a block on its own.
const devBlockTime = time.Second

// devAccounts is the number of funded accounts on the dev chain, deployer included.
const devAccounts = 10

// defaultChainLoader dials the configured RPCs with the configured signer keys.
func defaultChainLoader(ctx context.Context, cfg *config.Config, lggr logger.Logger) (evm.Chain, CloseFunc, error) {
	if err := cfg.Validate(); err != nil {
		return evm.Chain{}, nil, fmt.Errorf("invalid config: %w", err)
	}

	selector, err := cfg.Chain.ChainSelector()
	if err != nil {
		return evm.Chain{}, nil, err
	}

	deployer, users := signerGenerators(cfg.Signer)

	rpcs := make([]evm.RPC, 0, len(cfg.Chain.RPCs))
	for i, url := range cfg.Chain.RPCs {
		rpcs = append(rpcs, evm.RPC{Name: fmt.Sprintf("rpc-%d", i), HTTPURL: url})
	}

	p := provider.NewRPCChainProvider(selector, provider.RPCChainProviderConfig{
		DeployerTransactorGen: deployer,
		RPCs:                  rpcs,
		ConfirmFunctor: provider.ConfirmFuncGeth(
			cfg.Chain.ConfirmTimeout, provider.WithTickInterval(cfg.Chain.TickInterval),
		),
		UsersTransactorGen: users,
		Logger:             lggr,
	})

	bc, err := p.Initialize(ctx)
	if err != nil {
		return evm.Chain{}, nil, err
	}

	return bc.(evm.Chain), p.Close, nil
}

// signerGenerators returns the deployer and user generators. The first key, or mnemonic index
// 0, is the deployer.
func signerGenerators(cfg config.SignerConfig) (provider.SignerGenerator, []provider.SignerGenerator) {
	var gens []provider.SignerGenerator
	if cfg.Mnemonic != "" {
		gens = provider.TransactorsFromMnemonic(cfg.Mnemonic, cfg.NumAccounts)
	} else {
		for _, key := range cfg.PrivateKeys {
			gens = append(gens, provider.TransactorFromRaw(key))
		}
	}

	if len(gens) == 0 {
		return nil, nil
	}

	return gens[0], gens[1:]
}

// defaultDevChainLoader starts an auto-mining simulated chain with the well known development
// mnemonic accounts.
func defaultDevChainLoader(ctx context.Context, lggr logger.Logger) (evm.Chain, CloseFunc, error) {
	p := provider.NewSimChainProvider(provider.SimSelector, provider.SimChainProviderConfig{
		NumAdditionalAccounts: devAccounts - 1,
		BlockTime:             devBlockTime,
		Mnemonic:              provider.DefaultDevMnemonic,
	})

	bc, err := p.Initialize(ctx)
	if err != nil {
		return evm.Chain{}, nil, fmt.Errorf("failed to start dev chain: %w", err)
	}
	lggr.Infow("Started dev chain", "selector", provider.SimSelector, "accounts", devAccounts)

	return bc.(evm.Chain), p.Close, nil
}

// Deps holds the injectable dependencies for the lottery commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// ChainLoader connects to the configured chain.
	// Default: an RPCChainProvider built from the config
	ChainLoader ChainLoaderFunc

	// DevChainLoader starts the chain used by `serve --dev`.
	// Default: an auto-mining SimChainProvider
	DevChainLoader DevChainLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.ChainLoader == nil {
		d.ChainLoader = defaultChainLoader
	}
	if d.DevChainLoader == nil {
		d.DevChainLoader = defaultDevChainLoader
	}
}
