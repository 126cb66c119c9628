package provider

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerGenerator is an interface for generating geth's *bind.TransactOpts instances. These
// instances are used to sign transactions using geth bindings.
type SignerGenerator interface {
	Generate(chainID *big.Int) (*bind.TransactOpts, error)
}

var (
	_ SignerGenerator = (*transactorFromRaw)(nil)
	_ SignerGenerator = (*transactorRandom)(nil)
	_ SignerGenerator = (*transactorFromMnemonic)(nil)
)

// GeneratorOptions contains configuration options for the SignerGenerator.
type GeneratorOptions struct {
	gasLimit uint64
}

// GeneratorOption is a function that modifies GeneratorOptions.
type GeneratorOption func(*GeneratorOptions)

// WithGasLimit fixes the gas limit of generated transactors. Without it, gas is estimated per
// transaction.
func WithGasLimit(gasLimit uint64) GeneratorOption {
	return func(opts *GeneratorOptions) {
		opts.gasLimit = gasLimit
	}
}

func applyGeneratorOptions(opts []GeneratorOption) GeneratorOptions {
	o := GeneratorOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// newTransactor builds the keyed transactor shared by every generator.
func newTransactor(key *ecdsa.PrivateKey, chainID *big.Int, o GeneratorOptions) (*bind.TransactOpts, error) {
	transactor, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}
	if o.gasLimit > 0 {
		transactor.GasLimit = o.gasLimit
	}

	return transactor, nil
}

// TransactorFromRaw returns a generator which creates a transactor from a raw hex private key.
// The key may carry a 0x prefix.
func TransactorFromRaw(privKey string, opts ...GeneratorOption) SignerGenerator {
	return &transactorFromRaw{
		privKey: strings.TrimPrefix(strings.TrimSpace(privKey), "0x"),
		opts:    applyGeneratorOptions(opts),
	}
}

// transactorFromRaw is a SignerGenerator that creates a transactor from a private key.
type transactorFromRaw struct {
	privKey string
	opts    GeneratorOptions
}

// Generate parses the hex encoded private key and returns the bind transactor options.
func (g *transactorFromRaw) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	privKey, err := crypto.HexToECDSA(g.privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return newTransactor(privKey, chainID, g.opts)
}

// TransactorRandom is a SignerGenerator that creates a transactor with a random private key.
// The key is generated on the first call to Generate and reused afterwards.
func TransactorRandom(opts ...GeneratorOption) SignerGenerator {
	return &transactorRandom{opts: applyGeneratorOptions(opts)}
}

// transactorRandom is a SignerGenerator that creates a transactor from a random keypair.
type transactorRandom struct {
	privKey *ecdsa.PrivateKey
	opts    GeneratorOptions
}

// Generate generates a random key and returns the bind transactor options.
func (g *transactorRandom) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	if g.privKey == nil {
		privKey, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate random private key: %w", err)
		}
		g.privKey = privKey
	}

	return newTransactor(g.privKey, chainID, g.opts)
}

// TransactorFromMnemonic returns a generator for the account at index of the BIP44 Ethereum
// path m/44'/60'/0'/0/index derived from a BIP39 mnemonic.
func TransactorFromMnemonic(mnemonic string, index uint32, opts ...GeneratorOption) SignerGenerator {
	return &transactorFromMnemonic{
		mnemonic: mnemonic,
		index:    index,
		opts:     applyGeneratorOptions(opts),
	}
}

// TransactorsFromMnemonic returns generators for the first n accounts of a mnemonic, in index
// order.
func TransactorsFromMnemonic(mnemonic string, n uint32, opts ...GeneratorOption) []SignerGenerator {
	gens := make([]SignerGenerator, 0, n)
	for i := range n {
		gens = append(gens, TransactorFromMnemonic(mnemonic, i, opts...))
	}

	return gens
}

type transactorFromMnemonic struct {
	mnemonic string
	index    uint32
	opts     GeneratorOptions
}

// Generate derives the account key and returns the bind transactor options.
func (g *transactorFromMnemonic) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	privKey, err := DeriveMnemonicKey(g.mnemonic, g.index)
	if err != nil {
		return nil, err
	}

	return newTransactor(privKey, chainID, g.opts)
}
