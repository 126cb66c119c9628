package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lotterykit/lottery/chain/evm"
)

// ConfirmFunctor is an interface for creating a confirmation function for transactions on the
// EVM chain.
type ConfirmFunctor interface {
	// Generate returns a function that confirms transactions on the EVM chain.
	Generate(
		ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
	) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that polls the Geth client for the receipt.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	cf := &confirmFuncGeth{
		tickInterval:     1 * time.Second, // the same value we have in bind.WaitMined hardcoded in "go-ethereum"
		waitMinedTimeout: waitMinedTimeout,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

// WithTickInterval sets how often the receipt is polled.
func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.tickInterval = interval
	}
}

// confirmFuncGeth implements the ConfirmFunctor interface which generates a confirmation function
// for transactions using the Geth client.
type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
}

// Generate returns a function that confirms transactions using the Geth client.
func (g *confirmFuncGeth) Generate(
	ctx context.Context, selector uint64, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	return func(tx *types.Transaction) (uint64, error) {
		if tx == nil {
			return 0, fmt.Errorf("tx was nil, nothing to confirm for selector: %d", selector)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, g.tickInterval, client, tx.Hash())
		if err != nil {
			return 0, fmt.Errorf("tx %s failed to confirm for selector %d: %w",
				tx.Hash().Hex(), selector, err,
			)
		}

		return checkReceipt(ctxTimeout, selector, client, from, tx, receipt)
	}, nil
}

// checkReceipt returns the block number of a successful receipt, or an error wrapping
// evm.ErrReverted with the decoded reason when the transaction failed.
func checkReceipt(
	ctx context.Context,
	selector uint64,
	caller ContractCaller,
	from common.Address,
	tx *types.Transaction,
	receipt *types.Receipt,
) (uint64, error) {
	if receipt == nil {
		return 0, fmt.Errorf("receipt was nil for tx %s for selector %d",
			tx.Hash().Hex(), selector,
		)
	}

	blockNum := receipt.BlockNumber.Uint64()

	if receipt.Status == types.ReceiptStatusFailed {
		reason, err := getErrorReasonFromTx(ctx, caller, from, tx, receipt)
		if err == nil && reason != "" {
			return blockNum, fmt.Errorf("tx %s for selector %d: %w: %s",
				tx.Hash().Hex(), selector, evm.ErrReverted, reason,
			)
		}

		return blockNum, fmt.Errorf("tx %s for selector %d: %w, could not decode error reason",
			tx.Hash().Hex(), selector, evm.ErrReverted,
		)
	}

	return blockNum, nil
}

// WaitMinedWithInterval polls for the receipt of txHash every tick until it is available or ctx
// is done. This allows getting receipts faster on networks with instant blocks.
func WaitMinedWithInterval(
	ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash,
) (*types.Receipt, error) {
	return retry.DoWithData(
		func() (*types.Receipt, error) {
			return b.TransactionReceipt(ctx, txHash)
		},
		retry.Context(ctx),
		retry.Attempts(0), // until ctx is done
		retry.Delay(tick),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
