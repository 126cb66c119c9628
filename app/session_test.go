package app

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/chain/evm/provider"
	"github.com/lotterykit/lottery/chainclient"
	"github.com/lotterykit/lottery/contracts/lottery"
	"github.com/lotterykit/lottery/pkg/logger"
)

func TestSession_Mount(t *testing.T) {
	t.Parallel()

	l := newFakeLottery()
	l.snap.Players = []common.Address{player1}
	l.snap.Balance = big.NewInt(2e16)

	s := NewSession(l, newFakeChain(), logger.Test(t), nil)
	assert.Equal(t, StatusLoading, s.State().Status)

	st, err := s.Mount(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, manager, st.Manager)
	assert.Equal(t, []common.Address{player1}, st.Players)
	assert.Equal(t, "20000000000000000", st.Balance.String())
}

func TestSession_MountFailure(t *testing.T) {
	t.Parallel()

	l := newFakeLottery()
	l.snapErr = errors.New("connection refused")

	s := NewSession(l, newFakeChain(), logger.Test(t), nil)

	st, err := s.Mount(t.Context())
	require.Error(t, err)
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, MsgLoadingFailed+": connection refused", st.Message)

	// Recovers on the next mount
	l.mu.Lock()
	l.snapErr = nil
	l.mu.Unlock()

	st, err = s.Mount(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st.Status)
	assert.Empty(t, st.Message)
}

func TestSession_Enter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	l := newFakeLottery()
	s := NewSession(l, newFakeChain(), logger.Test(t), metrics)

	_, err := s.Mount(t.Context())
	require.NoError(t, err)

	s.SetValue("0.02")
	result, err := s.Enter(t.Context(), common.Address{})
	require.NoError(t, err)

	require.True(t, result.OK())
	assert.Equal(t, ActionEnter, result.Action)
	assert.Equal(t, chainclient.KindNone, result.Kind)
	assert.NotEqual(t, common.Hash{}, result.TxHash)

	// Sent from the first local account, with the value in wei
	assert.Equal(t, []common.Address{manager}, l.senders)
	assert.Equal(t, []*big.Int{big.NewInt(2e16)}, l.entries)

	st := s.State()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, MsgEnterDone, st.Message)
	assert.Equal(t, result, st.LastAction)
	assert.Equal(t, []common.Address{manager}, st.Players, "refreshed after success")
	assert.Equal(t, "20000000000000000", st.Balance.String())

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.actions.WithLabelValues("enter", "success")), 0)
}

func TestSession_EnterFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		giveValue   string
		giveErr     error
		wantKind    chainclient.ErrorKind
		wantMessage string
		wantSent    bool
	}{
		{
			name:        "malformed amount",
			giveValue:   "abc",
			wantKind:    chainclient.KindValidation,
			wantMessage: "Invalid input",
		},
		{
			name:        "empty amount",
			giveValue:   "",
			wantKind:    chainclient.KindValidation,
			wantMessage: "Invalid input",
		},
		{
			name:        "rejected by the contract",
			giveValue:   "0.001",
			giveErr:     errors.Join(chainclient.ErrTransactionRejected, evm.ErrReverted),
			wantKind:    chainclient.KindRejected,
			wantMessage: "Transaction rejected",
			wantSent:    true,
		},
		{
			name:        "provider down",
			giveValue:   "0.02",
			giveErr:     chainclient.ErrConnection,
			wantKind:    chainclient.KindConnection,
			wantMessage: "Cannot reach the chain",
			wantSent:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lggr, logs := logger.TestObserved(t, zapcore.WarnLevel)
			l := newFakeLottery()
			l.enterErr = tt.giveErr
			s := NewSession(l, newFakeChain(), lggr, nil)

			_, err := s.Mount(t.Context())
			require.NoError(t, err)

			s.SetValue(tt.giveValue)
			result, err := s.Enter(t.Context(), player1)
			require.NoError(t, err)

			require.False(t, result.OK())
			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, tt.wantSent, len(l.senders) == 1)

			st := s.State()
			assert.Equal(t, StatusError, st.Status)
			assert.Contains(t, st.Message, tt.wantMessage)
			assert.Empty(t, st.Players)

			failed := logs.FilterMessage("Action failed").All()
			require.Len(t, failed, 1)
			assert.Equal(t, tt.wantKind, failed[0].ContextMap()["kind"])
		})
	}
}

func TestSession_PickWinner(t *testing.T) {
	t.Parallel()

	l := newFakeLottery()
	l.snap.Players = []common.Address{player1, player2}
	l.snap.Balance = big.NewInt(4e16)
	s := NewSession(l, newFakeChain(), logger.Test(t), nil)

	_, err := s.Mount(t.Context())
	require.NoError(t, err)

	// Only the manager may pick
	result, err := s.PickWinner(t.Context(), player1)
	require.NoError(t, err)
	assert.Equal(t, chainclient.KindRejected, result.Kind)
	assert.Equal(t, StatusError, s.State().Status)

	result, err = s.PickWinner(t.Context(), manager)
	require.NoError(t, err)
	require.True(t, result.OK(), "err: %v", result.Err)

	st := s.State()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, MsgPickDone, st.Message)
	assert.Empty(t, st.Players)
	assert.Equal(t, "0", st.Balance.String())
}

func TestSession_DefaultSenderUnavailable(t *testing.T) {
	t.Parallel()

	c := newFakeChain()
	c.accountsErr = chainclient.ErrConnection
	s := NewSession(newFakeLottery(), c, logger.Test(t), nil)

	result, err := s.PickWinner(t.Context(), common.Address{})
	require.NoError(t, err)
	assert.Equal(t, chainclient.KindConnection, result.Kind)

	c.accountsErr = nil
	c.accounts = nil
	result, err = s.PickWinner(t.Context(), common.Address{})
	require.NoError(t, err)
	require.ErrorIs(t, result.Err, chainclient.ErrUnknownAccount)
}

func TestSession_Busy(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	l := newFakeLottery()
	l.started = make(chan struct{}, 1)
	l.release = make(chan struct{})
	s := NewSession(l, newFakeChain(), logger.Test(t), metrics)

	_, err := s.Mount(t.Context())
	require.NoError(t, err)
	s.SetValue("0.02")

	done := make(chan Result, 1)
	go func() {
		result, _ := s.Enter(t.Context(), manager)
		done <- result
	}()
	<-l.started

	before := s.State()
	assert.Equal(t, StatusSubmitting, before.Status)
	assert.Equal(t, MsgEnterPending, before.Message)

	_, err = s.Enter(t.Context(), manager)
	require.ErrorIs(t, err, ErrBusy)
	_, err = s.PickWinner(t.Context(), manager)
	require.ErrorIs(t, err, ErrBusy)
	_, err = s.EnterAmount(t.Context(), manager, "5")
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, before, s.State(), "busy submits leave the state unchanged")

	// A page reload does not clear the submission
	_, err = s.Mount(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitting, s.State().Status)

	close(l.release)
	result := <-done
	require.True(t, result.OK())
	assert.Equal(t, StatusReady, s.State().Status)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.actions.WithLabelValues("enter", outcomeBusy)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.actions.WithLabelValues("pick-winner", outcomeBusy)), 0)
	assert.Len(t, l.entries, 1)
}

// TestSession_SimulatedChain drives the whole stack against an in-memory chain.
func TestSession_SimulatedChain(t *testing.T) {
	t.Parallel()

	p := provider.NewSimChainProvider(provider.SimSelector, provider.SimChainProviderConfig{
		NumAdditionalAccounts: 2,
		Mnemonic:              provider.DefaultDevMnemonic,
	})
	t.Cleanup(func() { require.NoError(t, p.Close()) })

	bc, err := p.Initialize(t.Context())
	require.NoError(t, err)

	adapter := chainclient.New(bc.(evm.Chain), logger.Test(t))
	accounts, err := adapter.Accounts(t.Context())
	require.NoError(t, err)
	require.Equal(t, manager, accounts[0])

	l, _, err := lottery.Deploy(t.Context(), adapter, accounts[0])
	require.NoError(t, err)

	s := NewSession(l, adapter, logger.Test(t), nil)
	st, err := s.Mount(t.Context())
	require.NoError(t, err)
	assert.Equal(t, accounts[0], st.Manager)
	assert.Empty(t, st.Players)

	// Below the minimum entry
	s.SetValue("0.001")
	result, err := s.Enter(t.Context(), accounts[1])
	require.NoError(t, err)
	assert.Equal(t, chainclient.KindRejected, result.Kind)
	assert.Equal(t, StatusError, s.State().Status)

	s.SetValue("0.02")
	result, err = s.Enter(t.Context(), accounts[1])
	require.NoError(t, err)
	require.True(t, result.OK(), "err: %v", result.Err)
	assert.Equal(t, []common.Address{accounts[1]}, s.State().Players)

	// Not the manager
	result, err = s.PickWinner(t.Context(), accounts[2])
	require.NoError(t, err)
	assert.Equal(t, chainclient.KindRejected, result.Kind)

	result, err = s.PickWinner(t.Context(), common.Address{})
	require.NoError(t, err)
	require.True(t, result.OK(), "err: %v", result.Err)

	st = s.State()
	assert.Equal(t, MsgPickDone, st.Message)
	assert.Empty(t, st.Players)
	assert.Equal(t, "0", st.Balance.String())
}
