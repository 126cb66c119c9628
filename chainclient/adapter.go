// Package chainclient is the single point of contact between the lottery and an EVM chain: it
// lists the locally held accounts, reads balances, converts denominations and sends calls and
// transactions on behalf of those accounts.
package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/pkg/logger"
	"github.com/lotterykit/lottery/pkg/units"
)

// Contract is a handle to a deployed contract.
type Contract struct {
	Address common.Address
	ABI     abi.ABI
}

// Adapter wraps an evm.Chain. It never retries: every failure is returned to the caller,
// classified with the package sentinel errors.
type Adapter struct {
	chain evm.Chain
	lggr  logger.Logger

	// sendMu serialises nonce selection and submission.
	sendMu sync.Mutex
}

// New returns an Adapter for c.
func New(c evm.Chain, lggr logger.Logger) *Adapter {
	return &Adapter{
		chain: c,
		lggr:  lggr.Named("chainclient"),
	}
}

// ChainName returns a display name for the chain, "<name> (<selector>)".
func (a *Adapter) ChainName() string {
	if s := a.chain.String(); s != "" {
		return s
	}

	return fmt.Sprintf("chain %d", a.chain.Selector)
}

// Accounts returns the locally held accounts, deployer first. It checks that the provider is
// reachable before answering.
func (a *Adapter) Accounts(ctx context.Context) ([]common.Address, error) {
	if _, err := a.chain.Client.HeaderByNumber(ctx, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	transactors := a.chain.Transactors()
	accounts := make([]common.Address, 0, len(transactors))
	for _, t := range transactors {
		accounts = append(accounts, t.From)
	}

	return accounts, nil
}

// Balance returns the balance of address in wei at the latest block.
func (a *Adapter) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	bal, err := a.chain.Client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", address.Hex(), classify(err))
	}

	return bal, nil
}

// ToWei converts a decimal amount in unit to wei.
func (a *Adapter) ToWei(amount string, unit units.Unit) (*big.Int, error) {
	wei, err := units.ToWei(amount, unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return wei, nil
}

// FromWei formats a wei amount in unit.
func (a *Adapter) FromWei(wei *big.Int, unit units.Unit) (string, error) {
	s, err := units.FromWei(wei, unit)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return s, nil
}

// Call executes a read-only contract method as from and returns the unpacked outputs.
func (a *Adapter) Call(
	ctx context.Context, contract Contract, from common.Address, method string, args ...any,
) ([]any, error) {
	bc := a.bind(contract)

	var out []any
	if err := bc.Call(&bind.CallOpts{Context: ctx, From: from}, &out, method, args...); err != nil {
		err = classify(err)
		a.lggr.Debugw("Call failed", "method", method, "contract", contract.Address.Hex(),
			"kind", KindOf(err), "err", err,
		)

		return nil, fmt.Errorf("call %s on %s: %w", method, contract.Address.Hex(), err)
	}

	a.lggr.Debugw("Call", "method", method, "contract", contract.Address.Hex())

	return out, nil
}

// Send submits a state-mutating transaction signed by from with value attached, and waits for
// it to be confirmed. A transaction that was submitted is returned even when confirmation
// fails.
func (a *Adapter) Send(
	ctx context.Context,
	contract Contract,
	from common.Address,
	value *big.Int,
	method string,
	args ...any,
) (*types.Transaction, error) {
	opts, err := a.transactOpts(ctx, from, value)
	if err != nil {
		return nil, err
	}

	bc := a.bind(contract)

	a.sendMu.Lock()
	tx, err := bc.Transact(opts, method, args...)
	a.sendMu.Unlock()
	if err != nil {
		return nil, a.rejected(method, from, fmt.Errorf("send %s: %w", method, classify(err)))
	}

	a.lggr.Infow("Transaction sent",
		"method", method, "from", from.Hex(), "value", value, "tx", tx.Hash().Hex(),
	)

	if _, err := a.chain.Confirm(tx); err != nil {
		return tx, a.rejected(method, from, fmt.Errorf("confirm %s: %w", method, classify(err)))
	}

	a.lggr.Infow("Transaction confirmed", "method", method, "tx", tx.Hash().Hex())

	return tx, nil
}

// Deploy deploys a contract from from with a fixed gas limit and waits for confirmation.
func (a *Adapter) Deploy(
	ctx context.Context,
	from common.Address,
	parsed abi.ABI,
	bin []byte,
	gasLimit uint64,
	params ...any,
) (common.Address, *types.Transaction, error) {
	opts, err := a.transactOpts(ctx, from, nil)
	if err != nil {
		return common.Address{}, nil, err
	}
	opts.GasLimit = gasLimit

	a.sendMu.Lock()
	addr, tx, _, err := bind.DeployContract(opts, parsed, bin, a.chain.Client, params...)
	a.sendMu.Unlock()
	if err != nil {
		return common.Address{}, nil, a.rejected("deploy", from, fmt.Errorf("deploy: %w", classify(err)))
	}

	a.lggr.Infow("Deployment sent", "from", from.Hex(), "address", addr.Hex(), "tx", tx.Hash().Hex())

	if _, err := a.chain.Confirm(tx); err != nil {
		return common.Address{}, tx, a.rejected("deploy", from, fmt.Errorf("confirm deploy: %w", classify(err)))
	}

	a.lggr.Infow("Deployment confirmed", "address", addr.Hex(), "chain", a.ChainName())

	return addr, tx, nil
}

// transactOpts returns a private copy of the signer for from.
func (a *Adapter) transactOpts(ctx context.Context, from common.Address, value *big.Int) (*bind.TransactOpts, error) {
	t, ok := a.chain.Transactor(from)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, from.Hex())
	}

	opts := *t
	opts.Context = ctx
	opts.Value = value

	return &opts, nil
}

func (a *Adapter) bind(c Contract) *bind.BoundContract {
	return bind.NewBoundContract(c.Address, c.ABI, a.chain.Client, a.chain.Client, a.chain.Client)
}

func (a *Adapter) rejected(method string, from common.Address, err error) error {
	a.lggr.Warnw("Transaction failed",
		"method", method, "from", from.Hex(), "kind", KindOf(err), "err", err,
	)

	return err
}
