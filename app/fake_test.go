package app

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lotterykit/lottery/chainclient"
	"github.com/lotterykit/lottery/contracts/lottery"
	"github.com/lotterykit/lottery/pkg/units"
)

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeLottery keeps the contract state in memory. Enter and PickWinner wait on release when it
// is set, after signalling started.
type fakeLottery struct {
	mu       sync.Mutex
	snap     lottery.Snapshot
	snapErr  error
	enterErr error
	pickErr  error
	nonce    uint64
	entries  []*big.Int
	senders  []common.Address

	started chan struct{}
	release chan struct{}
}

var _ Lottery = (*fakeLottery)(nil)

func newFakeLottery() *fakeLottery {
	return &fakeLottery{
		snap: lottery.Snapshot{Manager: manager, Balance: big.NewInt(0)},
	}
}

func (f *fakeLottery) Address() common.Address { return contractAddr }

func (f *fakeLottery) Snapshot(context.Context) (lottery.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.snapErr != nil {
		return lottery.Snapshot{}, f.snapErr
	}

	return lottery.Snapshot{
		Manager: f.snap.Manager,
		Players: slices.Clone(f.snap.Players),
		Balance: new(big.Int).Set(f.snap.Balance),
	}, nil
}

func (f *fakeLottery) Enter(ctx context.Context, from common.Address, value *big.Int) (*types.Transaction, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.senders = append(f.senders, from)
	if f.enterErr != nil {
		return f.tx(), f.enterErr
	}

	f.entries = append(f.entries, value)
	f.snap.Players = append(f.snap.Players, from)
	f.snap.Balance = new(big.Int).Add(f.snap.Balance, value)

	return f.tx(), nil
}

func (f *fakeLottery) PickWinner(ctx context.Context, from common.Address) (*types.Transaction, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.senders = append(f.senders, from)
	if f.pickErr != nil {
		return nil, f.pickErr
	}
	if from != f.snap.Manager || len(f.snap.Players) == 0 {
		return f.tx(), fmt.Errorf("%w: execution reverted", chainclient.ErrTransactionRejected)
	}

	f.snap.Players = nil
	f.snap.Balance = big.NewInt(0)

	return f.tx(), nil
}

func (f *fakeLottery) wait(ctx context.Context) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release == nil {
		return nil
	}

	select {
	case <-f.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tx must be called with mu held.
func (f *fakeLottery) tx() *types.Transaction {
	f.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce, To: &contractAddr, Value: big.NewInt(0)})
}

type fakeChain struct {
	accounts    []common.Address
	accountsErr error
}

var _ Chain = (*fakeChain)(nil)

func newFakeChain() *fakeChain {
	return &fakeChain{accounts: []common.Address{manager, player1, player2}}
}

func (c *fakeChain) ChainName() string { return "geth-testnet (3379446385462418246)" }

func (c *fakeChain) Accounts(context.Context) ([]common.Address, error) {
	if c.accountsErr != nil {
		return nil, c.accountsErr
	}

	return slices.Clone(c.accounts), nil
}

func (c *fakeChain) ToWei(amount string, unit units.Unit) (*big.Int, error) {
	wei, err := units.ToWei(amount, unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", chainclient.ErrValidation, err)
	}

	return wei, nil
}

func (c *fakeChain) FromWei(wei *big.Int, unit units.Unit) (string, error) {
	return units.FromWei(wei, unit)
}
