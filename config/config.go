// Package config loads the lottery configuration from a YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/lotterykit/lottery/chain/utils"
)

const (
	DefaultConfirmTimeout = 2 * time.Minute
	DefaultTickInterval   = time.Second
	DefaultNumAccounts    = 10
	DefaultAddressBook    = "addresses.json"
	DefaultListen         = ":3000"
	DefaultLogLevel       = "info"
)

// ErrNoChain is returned when neither a chain selector nor a chain ID is configured.
var ErrNoChain = errors.New("chain.selector or chain.chain_id is required")

// ChainConfig selects the chain and how to reach it.
type ChainConfig struct {
	Selector       uint64        `mapstructure:"selector" yaml:"selector,omitempty"`     // Chain selector, takes precedence over ChainID
	ChainID        string        `mapstructure:"chain_id" yaml:"chain_id,omitempty"`     // EVM chain ID, e.g. "1337"
	RPCs           []string      `mapstructure:"rpcs" yaml:"rpcs"`                       // HTTP RPC URLs, the first healthy one is used
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"` // How long to wait for a receipt
	TickInterval   time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`     // How often to poll for a receipt
}

// SignerConfig holds the local signer key material. The first account is the deployer.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type SignerConfig struct {
	PrivateKeys []string `mapstructure:"private_keys" yaml:"private_keys,omitempty"` // Secret: hex private keys
	Mnemonic    string   `mapstructure:"mnemonic" yaml:"mnemonic,omitempty"`         // Secret: BIP39 mnemonic
	NumAccounts uint32   `mapstructure:"num_accounts" yaml:"num_accounts"`           // Accounts derived from Mnemonic
}

// LotteryConfig locates the deployed contract.
type LotteryConfig struct {
	Address     string `mapstructure:"address" yaml:"address,omitempty"` // Overrides the address book
	AddressBook string `mapstructure:"address_book" yaml:"address_book"` // Path to the address book file
}

type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config wraps the entire configuration of the lottery CLI.
type Config struct {
	Chain   ChainConfig   `mapstructure:"chain" yaml:"chain"`
	Signer  SignerConfig  `mapstructure:"signer" yaml:"signer"`
	Lottery LotteryConfig `mapstructure:"lottery" yaml:"lottery"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := newViper()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// LoadFile loads the config from a file.
func LoadFile(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("chain.confirm_timeout", DefaultConfirmTimeout)
	v.SetDefault("chain.tick_interval", DefaultTickInterval)
	v.SetDefault("signer.num_accounts", DefaultNumAccounts)
	v.SetDefault("lottery.address_book", DefaultAddressBook)
	v.SetDefault("server.listen", DefaultListen)
	v.SetDefault("log.level", DefaultLogLevel)

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// envBindings maps config keys to the environment variables that can provide their value. The
// first variable that is set wins.
var envBindings = map[string][]string{
	"chain.selector":       {"LOTTERY_CHAIN_SELECTOR"},
	"chain.chain_id":       {"LOTTERY_CHAIN_ID"},
	"chain.rpcs":           {"LOTTERY_RPC_URLS"},
	"signer.private_keys":  {"LOTTERY_PRIVATE_KEYS"},
	"signer.mnemonic":      {"LOTTERY_MNEMONIC"},
	"lottery.address":      {"LOTTERY_ADDRESS"},
	"lottery.address_book": {"LOTTERY_ADDRESS_BOOK"},
	"server.listen":        {"LOTTERY_LISTEN"},
	"log.level":            {"LOG_LEVEL"},
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// Prepend the env key to the start of the arguments
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}

// ChainSelector resolves the configured chain. A selector takes precedence over a chain ID.
func (c ChainConfig) ChainSelector() (uint64, error) {
	if c.Selector != 0 {
		if _, err := chainsel.GetChainIDFromSelector(c.Selector); err != nil {
			return 0, fmt.Errorf("chain.selector: %w", err)
		}

		return c.Selector, nil
	}

	if c.ChainID != "" {
		sel, err := utils.EVMSelector(strings.TrimSpace(c.ChainID))
		if err != nil {
			return 0, fmt.Errorf("chain.chain_id: %w", err)
		}

		return sel, nil
	}

	return 0, ErrNoChain
}

// Validate reports every missing or malformed value needed to reach a live chain.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Chain.ChainSelector(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Chain.RPCs) == 0 {
		errs = append(errs, errors.New("chain.rpcs: at least one RPC URL is required"))
	}
	if c.Chain.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("chain.confirm_timeout must be positive"))
	}
	if c.Chain.TickInterval <= 0 {
		errs = append(errs, errors.New("chain.tick_interval must be positive"))
	}

	switch {
	case len(c.Signer.PrivateKeys) == 0 && c.Signer.Mnemonic == "":
		errs = append(errs, errors.New("signer: private_keys or mnemonic is required"))
	case len(c.Signer.PrivateKeys) > 0 && c.Signer.Mnemonic != "":
		errs = append(errs, errors.New("signer: private_keys and mnemonic are mutually exclusive"))
	case c.Signer.Mnemonic != "" && c.Signer.NumAccounts == 0:
		errs = append(errs, errors.New("signer.num_accounts must be at least 1"))
	}

	if c.Lottery.Address != "" && !common.IsHexAddress(c.Lottery.Address) {
		errs = append(errs, fmt.Errorf("lottery.address: %q is not a valid address", c.Lottery.Address))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}
