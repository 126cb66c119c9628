// Package app is the lottery web UI: an immutable page state advanced by Reduce, a Session
// that runs the contract calls behind each user action, and an HTTP server rendering both.
package app

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/lotterykit/lottery/chainclient"
	"github.com/lotterykit/lottery/contracts/lottery"
)

// Status is the phase the page is in.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusSubmitting Status = "submitting"
	StatusError      Status = "error"
)

// Action names a user initiated transaction.
type Action string

const (
	ActionNone       Action = ""
	ActionEnter      Action = "enter"
	ActionPickWinner Action = "pick-winner"
)

const (
	MsgEnterPending  = "Waiting on transaction success..."
	MsgEnterDone     = "You have been entered!"
	MsgPickPending   = "Picking a winner..."
	MsgPickDone      = "A winner has been picked!"
	MsgLoadingFailed = "Could not load the lottery"
)

// Result is the outcome of one action. Err is nil and Kind is chainclient.KindNone on success.
type Result struct {
	ID     uuid.UUID
	Action Action
	TxHash common.Hash
	Kind   chainclient.ErrorKind
	Err    error
}

// OK reports whether the action succeeded.
func (r Result) OK() bool { return r.Err == nil }

// State is everything the page renders. It is a value: Reduce returns a new State and never
// mutates the one it is given.
type State struct {
	// Value is the pending entry amount, in ether, as typed.
	Value   string
	Manager common.Address
	Players []common.Address
	// Balance of the contract in wei.
	Balance    *big.Int
	Message    string
	Status     Status
	Pending    Action
	LastAction Result

	// loadFailed marks Message as a load error, cleared by the next successful load.
	loadFailed bool
}

// Event is an input to Reduce.
type Event interface {
	event()
}

type (
	// Mounted starts loading the contract state.
	Mounted struct{}
	// Loaded carries a fresh snapshot of the contract.
	Loaded struct{ Snapshot lottery.Snapshot }
	// LoadFailed reports that the snapshot could not be read.
	LoadFailed struct{ Err error }
	// ValueChanged is a keystroke in the amount input.
	ValueChanged struct{ Value string }
	// EnterSubmitted is the amount form being submitted.
	EnterSubmitted struct{}
	// PickSubmitted is the pick winner button being clicked.
	PickSubmitted struct{}
	// ActionSucceeded is a confirmed transaction.
	ActionSucceeded struct{ Result Result }
	// ActionFailed is a transaction that could not be sent or was rejected.
	ActionFailed struct{ Result Result }
)

func (Mounted) event()         {}
func (Loaded) event()          {}
func (LoadFailed) event()      {}
func (ValueChanged) event()    {}
func (EnterSubmitted) event()  {}
func (PickSubmitted) event()   {}
func (ActionSucceeded) event() {}
func (ActionFailed) event()    {}

// Reduce returns the state that follows s after e. Submits are ignored while another action is
// in flight.
func Reduce(s State, e Event) State {
	next := s.clone()

	switch e := e.(type) {
	case Mounted:
		// A reload never interrupts an action. The last message is kept.
		if next.Status == StatusSubmitting {
			return s
		}
		next.Status = StatusLoading

	case Loaded:
		next.Manager = e.Snapshot.Manager
		next.Players = slices.Clone(e.Snapshot.Players)
		next.Balance = cloneBig(e.Snapshot.Balance)
		if next.Status == StatusLoading {
			next.Status = StatusReady
		}
		if next.loadFailed {
			next.loadFailed = false
			next.Message = ""
		}

	case LoadFailed:
		if next.Status == StatusLoading {
			next.Status = StatusError
			next.Message = fmt.Sprintf("%s: %v", MsgLoadingFailed, e.Err)
			next.loadFailed = true
		}

	case ValueChanged:
		next.Value = e.Value

	case EnterSubmitted:
		if next.Status == StatusSubmitting {
			return s
		}
		next.loadFailed = false
		next.Status = StatusSubmitting
		next.Pending = ActionEnter
		next.Message = MsgEnterPending

	case PickSubmitted:
		if next.Status == StatusSubmitting {
			return s
		}
		next.loadFailed = false
		next.Status = StatusSubmitting
		next.Pending = ActionPickWinner
		next.Message = MsgPickPending

	case ActionSucceeded:
		next.Status = StatusReady
		next.Pending = ActionNone
		next.LastAction = e.Result
		next.Message = successMessage(e.Result.Action)

	case ActionFailed:
		next.Status = StatusError
		next.Pending = ActionNone
		next.LastAction = e.Result
		next.Message = failureMessage(e.Result)
	}

	return next
}

// CanSubmit reports whether a new action may start.
func (s State) CanSubmit() bool {
	return s.Status != StatusSubmitting
}

func (s State) clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Balance = cloneBig(s.Balance)

	return c
}

func successMessage(a Action) string {
	switch a {
	case ActionEnter:
		return MsgEnterDone
	case ActionPickWinner:
		return MsgPickDone
	default:
		return ""
	}
}

func failureMessage(r Result) string {
	var prefix string
	switch r.Kind {
	case chainclient.KindValidation:
		prefix = "Invalid input"
	case chainclient.KindRejected:
		prefix = "Transaction rejected"
	case chainclient.KindConnection:
		prefix = "Cannot reach the chain"
	default:
		prefix = "Something went wrong"
	}
	if r.Err == nil {
		return prefix
	}

	return fmt.Sprintf("%s: %v", prefix, r.Err)
}

func cloneBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}

	return new(big.Int).Set(x)
}
