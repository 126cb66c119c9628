package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWithLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		wantErr string
	}{
		{name: "debug", give: "debug"},
		{name: "info", give: "info"},
		{name: "warn", give: "warn"},
		{name: "invalid", give: "loud", wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lggr, err := NewWithLevel(tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, lggr)
		})
	}
}

func TestNamed(t *testing.T) {
	t.Parallel()

	lggr := Test(t).Named("app").Named("session")
	assert.Equal(t, "app.session", lggr.Name())
}

func TestTestObserved(t *testing.T) {
	t.Parallel()

	lggr, logs := TestObserved(t, zapcore.InfoLevel)
	lggr.Debugw("hidden")
	lggr.Infow("entered", "from", "0xabc")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "entered", entry.Message)
	assert.Equal(t, "0xabc", entry.ContextMap()["from"])
}

func TestNop(t *testing.T) {
	t.Parallel()

	lggr := Nop()
	lggr.Errorw("nothing happens")
	assert.Empty(t, lggr.Name())
}
