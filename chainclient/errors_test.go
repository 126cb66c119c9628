package chainclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/pkg/units"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give error
		want ErrorKind
	}{
		{name: "nil", give: nil, want: KindNone},
		{name: "connection", give: fmt.Errorf("accounts: %w", ErrConnection), want: KindConnection},
		{name: "no healthy rpc", give: fmt.Errorf("init: %w", evm.ErrNoHealthyRPC), want: KindConnection},
		{name: "validation", give: fmt.Errorf("%w: %w", ErrValidation, units.ErrFormat), want: KindValidation},
		{name: "bare format error", give: units.ErrFormat, want: KindValidation},
		{name: "unknown account", give: ErrUnknownAccount, want: KindValidation},
		{name: "rejected", give: fmt.Errorf("enter: %w", ErrTransactionRejected), want: KindRejected},
		{name: "reverted receipt", give: evm.ErrReverted, want: KindRejected},
		{name: "anything else", give: errors.New("insufficient funds"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, KindOf(tt.give))
		})
	}
}

func Test_classify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		give     error
		wantIs   error
		wantSame bool
		wantNil  bool
	}{
		{
			name:    "nil",
			give:    nil,
			wantNil: true,
		},
		{
			name:   "estimate gas revert flattened to string",
			give:   errors.New("failed to estimate gas needed: execution reverted"),
			wantIs: ErrTransactionRejected,
		},
		{
			name:   "vm revert",
			give:   fmt.Errorf("call: %w", vm.ErrExecutionReverted),
			wantIs: ErrTransactionRejected,
		},
		{
			name:   "failed receipt",
			give:   fmt.Errorf("tx 0x01: %w", evm.ErrReverted),
			wantIs: ErrTransactionRejected,
		},
		{
			name:   "connection refused",
			give:   &url.Error{Op: "Post", URL: "http://localhost:8545", Err: syscall.ECONNREFUSED},
			wantIs: ErrConnection,
		},
		{
			name:   "dial error",
			give:   &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")},
			wantIs: ErrConnection,
		},
		{
			name:     "other errors pass through",
			give:     errors.New("nonce too low"),
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := classify(tt.give)
			switch {
			case tt.wantNil:
				require.NoError(t, got)
			case tt.wantSame:
				assert.Equal(t, tt.give, got)
			default:
				require.ErrorIs(t, got, tt.wantIs)
				require.ErrorIs(t, got, tt.give)
			}
		})
	}
}
