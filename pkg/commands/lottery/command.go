package lottery

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/chainclient"
	"github.com/lotterykit/lottery/config"
	contract "github.com/lotterykit/lottery/contracts/lottery"
	"github.com/lotterykit/lottery/deployment"
	"github.com/lotterykit/lottery/pkg/logger"
)

// Config holds the configuration for the lottery commands.
type Config struct {
	// Logger is used by every command. When nil, a production logger is built at the configured
	// log level.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps fills in the optional dependencies.
func (c *Config) deps() {
	c.Deps.applyDefaults()
}

// runtime is what the root command resolves before any subcommand runs.
type runtime struct {
	cfg  *config.Config
	lggr logger.Logger
}

// NewCommand creates the lottery root command with all subcommands.
//
// Usage:
//
//	lottery.NewCommand(lottery.Config{}).ExecuteContext(ctx)
func NewCommand(cfg Config) *cobra.Command {
	// Apply defaults for optional dependencies
	cfg.deps()

	var (
		rt       runtime
		cfgPath  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "lottery",
		Short:         "Deploy and play the lottery contract",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := cfg.Deps.ConfigLoader(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config %s: %w", cfgPath, err)
			}
			if logLevel != "" {
				appCfg.Log.Level = logLevel
			}

			lggr := cfg.Logger
			if lggr == nil {
				if lggr, err = logger.NewWithLevel(appCfg.Log.Level); err != nil {
					return err
				}
			}

			rt = runtime{cfg: appCfg, lggr: lggr}

			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "lottery.yaml", "Path to the config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides the config (debug, info, warn, error)")

	cmd.AddCommand(
		newAccountsCmd(cfg, &rt),
		newDeployCmd(cfg, &rt),
		newStatusCmd(cfg, &rt),
		newEnterCmd(cfg, &rt),
		newPickWinnerCmd(cfg, &rt),
		newServeCmd(cfg, &rt),
	)

	return cmd
}

// connect loads the configured chain and wraps it in an adapter. The returned CloseFunc must be
// called when done.
func connect(ctx context.Context, cfg Config, rt *runtime) (evm.Chain, *chainclient.Adapter, CloseFunc, error) {
	c, closeFn, err := cfg.Deps.ChainLoader(ctx, rt.cfg, rt.lggr)
	if err != nil {
		return evm.Chain{}, nil, nil, fmt.Errorf("failed to connect to chain: %w", err)
	}

	return c, chainclient.New(c, rt.lggr), closeFn, nil
}

// openLottery binds to the configured lottery address, or the latest one recorded for the chain
// in the address book.
func openLottery(rt *runtime, selector uint64, backend contract.Backend) (*contract.Lottery, error) {
	if rt.cfg.Lottery.Address != "" {
		if !common.IsHexAddress(rt.cfg.Lottery.Address) {
			return nil, fmt.Errorf("lottery.address: %q is not a valid address", rt.cfg.Lottery.Address)
		}

		return contract.New(common.HexToAddress(rt.cfg.Lottery.Address), backend)
	}

	ab, err := deployment.LoadAddressBookFile(rt.cfg.Lottery.AddressBook)
	if err != nil {
		return nil, err
	}

	addr, err := deployment.SearchAddressBook(ab, selector, contract.ContractType)
	if errors.Is(err, deployment.ErrChainNotFound) || errors.Is(err, deployment.ErrAddressNotFound) {
		return nil, fmt.Errorf("no lottery recorded for chain %d in %s, run deploy or set lottery.address: %w",
			selector, rt.cfg.Lottery.AddressBook, err,
		)
	}
	if err != nil {
		return nil, err
	}

	return contract.New(common.HexToAddress(addr), backend)
}

// resolveFrom parses the --from flag, defaulting to the first local account.
func resolveFrom(ctx context.Context, adapter *chainclient.Adapter, from string) (common.Address, error) {
	if from != "" {
		if !common.IsHexAddress(from) {
			return common.Address{}, fmt.Errorf("%w: --from %q is not a valid address", chainclient.ErrValidation, from)
		}

		return common.HexToAddress(from), nil
	}

	accounts, err := adapter.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, fmt.Errorf("%w: no local accounts", chainclient.ErrUnknownAccount)
	}

	return accounts[0], nil
}
