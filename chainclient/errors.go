package chainclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/pkg/units"
)

var (
	// ErrConnection is returned when the chain provider cannot be reached.
	ErrConnection = errors.New("chain provider unreachable")
	// ErrValidation is returned for malformed input, such as a non numeric amount.
	ErrValidation = errors.New("invalid input")
	// ErrTransactionRejected is returned when the contract rejects a call or transaction, either
	// during gas estimation or with a failed receipt.
	ErrTransactionRejected = errors.New("transaction rejected")
	// ErrUnknownAccount is returned when the sender is not held by the local signer.
	ErrUnknownAccount = errors.New("account not held by the local signer")
)

// ErrorKind names the failure branch of an error, so callers can match on it without
// inspecting error chains.
type ErrorKind string

const (
	KindNone       ErrorKind = "none"
	KindConnection ErrorKind = "connection"
	KindValidation ErrorKind = "validation"
	KindRejected   ErrorKind = "rejected"
	KindUnknown    ErrorKind = "unknown"
)

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConnection), errors.Is(err, evm.ErrNoHealthyRPC):
		return KindConnection
	case errors.Is(err, ErrValidation), errors.Is(err, units.ErrFormat),
		errors.Is(err, units.ErrUnknownUnit), errors.Is(err, ErrUnknownAccount):
		return KindValidation
	case errors.Is(err, ErrTransactionRejected), errors.Is(err, evm.ErrReverted):
		return KindRejected
	default:
		return KindUnknown
	}
}

// classify wraps chain errors in the package sentinels. Errors that match none are returned
// unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isRevert(err):
		return fmt.Errorf("%w: %w", ErrTransactionRejected, err)
	case isConnectionError(err):
		return fmt.Errorf("%w: %w", ErrConnection, err)
	default:
		return err
	}
}

// isRevert reports whether err comes from the EVM reverting, at estimation, call or receipt
// time. Gas estimation errors are flattened to strings by the bind package, hence the message
// match.
func isRevert(err error) bool {
	return errors.Is(err, evm.ErrReverted) ||
		errors.Is(err, vm.ErrExecutionReverted) ||
		strings.Contains(err.Error(), vm.ErrExecutionReverted.Error())
}

func isConnectionError(err error) bool {
	if errors.Is(err, evm.ErrNoHealthyRPC) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && !errors.Is(urlErr.Err, context.Canceled) {
		return true
	}

	return false
}
