package provider

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/stretchr/testify/assert"
)

// newFakeRPCServer returns a fake RPC server which answers every request with the chain ID of
// TEST_1000, so it passes the dial health check.
//
// When the test is done, the server is closed automatically.
func newFakeRPCServer(t *testing.T) *httptest.Server {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x3e8", // 1000
		})
	})

	srv := httptest.NewServer(handler)

	t.Cleanup(func() {
		srv.Close()
	})

	return srv
}

// alwaysFailingTransactorGenerator returns a SignerGenerator that always fails
// with an error.
type alwaysFailingTransactorGenerator struct{}

// Generate implements the SignerGenerator interface and always returns an error.
func (a *alwaysFailingTransactorGenerator) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	return nil, assert.AnError
}
