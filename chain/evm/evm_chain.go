package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/lotterykit/lottery/chain/utils"
)

// ErrReverted is returned by a ConfirmFunc when the transaction was mined with a failed status.
var ErrReverted = errors.New("transaction reverted")

// ConfirmFunc is a function that takes a transaction, waits for the transaction to be confirmed,
// and returns the block number and an error.
type ConfirmFunc func(tx *types.Transaction) (uint64, error)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// Chain represents an EVM chain.
type Chain struct {
	Selector uint64

	Client OnchainClient
	// DeployerKey signs deployments and is the first local account.
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc
	// Users are a set of keys that can be used to interact with the chain.
	// These are distinct from the deployer key.
	Users []*bind.TransactOpts
}

// ChainSelector returns the chain selector of the chain
func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// String returns chain name and selector "<name> (<selector>)", or "" for an unknown selector.
func (c Chain) String() string {
	info, err := utils.ChainInfo(c.Selector)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%s (%d)", info.ChainName, info.ChainSelector)
}

// Name returns the name of the chain. Unnamed chains fall back to the selector.
func (c Chain) Name() string {
	info, err := utils.ChainInfo(c.Selector)
	if err != nil {
		return ""
	}
	if info.ChainName == "" {
		return strconv.FormatUint(c.Selector, 10)
	}

	return info.ChainName
}

// Family is always chainsel.FamilyEVM for a known selector.
func (c Chain) Family() string {
	family, err := chainsel.GetSelectorFamily(c.Selector)
	if err != nil {
		return ""
	}

	return family
}

// Transactors returns every local signer, deployer key first.
func (c Chain) Transactors() []*bind.TransactOpts {
	out := make([]*bind.TransactOpts, 0, len(c.Users)+1)
	if c.DeployerKey != nil {
		out = append(out, c.DeployerKey)
	}

	return append(out, c.Users...)
}

// Transactor returns the local signer for from, if there is one.
func (c Chain) Transactor(from common.Address) (*bind.TransactOpts, bool) {
	for _, t := range c.Transactors() {
		if t.From == from {
			return t, true
		}
	}

	return nil, false
}
