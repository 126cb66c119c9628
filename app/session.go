package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/lotterykit/lottery/chainclient"
	"github.com/lotterykit/lottery/contracts/lottery"
	"github.com/lotterykit/lottery/pkg/logger"
	"github.com/lotterykit/lottery/pkg/units"
)

// ErrBusy is returned when an action is submitted while another one is still in flight.
var ErrBusy = errors.New("another transaction is in flight")

// Lottery is the contract surface the page drives. It is implemented by *lottery.Lottery.
type Lottery interface {
	Address() common.Address
	Snapshot(ctx context.Context) (lottery.Snapshot, error)
	Enter(ctx context.Context, from common.Address, value *big.Int) (*types.Transaction, error)
	PickWinner(ctx context.Context, from common.Address) (*types.Transaction, error)
}

var _ Lottery = (*lottery.Lottery)(nil)

// Chain is what the page needs from the chain client. It is implemented by
// *chainclient.Adapter.
type Chain interface {
	ChainName() string
	Accounts(ctx context.Context) ([]common.Address, error)
	ToWei(amount string, unit units.Unit) (*big.Int, error)
	FromWei(wei *big.Int, unit units.Unit) (string, error)
}

var _ Chain = (*chainclient.Adapter)(nil)

// Session owns the page state and runs the contract calls behind each user action. The state
// lock is never held across a chain call.
type Session struct {
	lottery Lottery
	chain   Chain
	lggr    logger.Logger
	metrics *Metrics

	mu    sync.Mutex
	state State
}

// NewSession returns a Session in the Loading state. metrics may be nil.
func NewSession(l Lottery, c Chain, lggr logger.Logger, metrics *Metrics) *Session {
	return &Session{
		lottery: l,
		chain:   c,
		lggr:    lggr.Named("app"),
		metrics: metrics,
		state:   State{Status: StatusLoading},
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.clone()
}

// Mount reads manager, players and balance from the contract.
func (s *Session) Mount(ctx context.Context) (State, error) {
	s.dispatch(Mounted{})

	snap, err := s.lottery.Snapshot(ctx)
	if err != nil {
		s.lggr.Errorw("Failed to load lottery", "contract", s.lottery.Address().Hex(), "err", err)

		return s.dispatch(LoadFailed{Err: err}), err
	}

	return s.dispatch(Loaded{Snapshot: snap}), nil
}

// SetValue records the amount typed into the entry form.
func (s *Session) SetValue(value string) State {
	return s.dispatch(ValueChanged{Value: value})
}

// Enter sends the current value, in ether, as an entry from from. A zero from means the first
// local account. ErrBusy is the only error returned, every other failure is in the Result.
func (s *Session) Enter(ctx context.Context, from common.Address) (Result, error) {
	value, ok := s.begin(ActionEnter, nil)
	if !ok {
		return Result{}, ErrBusy
	}

	return s.enter(ctx, from, value), nil
}

// EnterAmount is SetValue followed by Enter, as one step. A busy session keeps its value.
func (s *Session) EnterAmount(ctx context.Context, from common.Address, value string) (Result, error) {
	value, ok := s.begin(ActionEnter, &value)
	if !ok {
		return Result{}, ErrBusy
	}

	return s.enter(ctx, from, value), nil
}

// PickWinner asks the contract to pick a winner, sent from from. A zero from means the first
// local account. ErrBusy is the only error returned, every other failure is in the Result.
func (s *Session) PickWinner(ctx context.Context, from common.Address) (Result, error) {
	if _, ok := s.begin(ActionPickWinner, nil); !ok {
		return Result{}, ErrBusy
	}

	return s.run(ctx, ActionPickWinner, from, s.lottery.PickWinner), nil
}

// begin moves the state to Submitting for action, first setting the value when one is given. It
// returns the value to submit, or false if another action is in flight.
func (s *Session) begin(action Action, value *string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CanSubmit() {
		s.metrics.busy(action)
		return "", false
	}

	if value != nil {
		s.state = Reduce(s.state, ValueChanged{Value: *value})
	}
	if action == ActionEnter {
		s.state = Reduce(s.state, EnterSubmitted{})
	} else {
		s.state = Reduce(s.state, PickSubmitted{})
	}

	return s.state.Value, true
}

func (s *Session) enter(ctx context.Context, from common.Address, value string) Result {
	return s.run(ctx, ActionEnter, from, func(ctx context.Context, from common.Address) (*types.Transaction, error) {
		wei, err := s.chain.ToWei(value, units.Ether)
		if err != nil {
			return nil, err
		}

		return s.lottery.Enter(ctx, from, wei)
	})
}

func (s *Session) run(
	ctx context.Context,
	action Action,
	from common.Address,
	send func(context.Context, common.Address) (*types.Transaction, error),
) Result {
	start := time.Now()
	result := Result{ID: uuid.New(), Action: action}

	var tx *types.Transaction
	sender, err := s.sender(ctx, from)
	if err == nil {
		tx, err = send(ctx, sender)
	}
	if tx != nil {
		result.TxHash = tx.Hash()
	}
	result.Err = err
	result.Kind = chainclient.KindOf(err)

	s.metrics.observe(result, time.Since(start))

	if err != nil {
		s.lggr.Warnw("Action failed",
			"id", result.ID, "action", action, "from", sender.Hex(), "kind", result.Kind, "err", err,
		)
		s.dispatch(ActionFailed{Result: result})

		return result
	}

	s.lggr.Infow("Action succeeded",
		"id", result.ID, "action", action, "from", sender.Hex(), "tx", result.TxHash.Hex(),
	)
	s.dispatch(ActionSucceeded{Result: result})

	// The outcome stands even when the refresh fails, the next Mount reloads.
	if snap, err := s.lottery.Snapshot(ctx); err != nil {
		s.lggr.Warnw("Failed to refresh lottery", "id", result.ID, "err", err)
	} else {
		s.dispatch(Loaded{Snapshot: snap})
	}

	return result
}

// sender defaults from to the first local account.
func (s *Session) sender(ctx context.Context, from common.Address) (common.Address, error) {
	if from != (common.Address{}) {
		return from, nil
	}

	accounts, err := s.chain.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, fmt.Errorf("%w: no local accounts", chainclient.ErrUnknownAccount)
	}

	return accounts[0], nil
}

func (s *Session) dispatch(e Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, e)

	return s.state.clone()
}
