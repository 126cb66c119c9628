package chain

import "context"

// Provider sets up a chain and owns whatever backs it: an RPC connection or an in-memory
// simulated node.
//
// Initialize is idempotent and returns the same BlockChain on every call. Close releases the
// backing resources and must be called once the chain is no longer used.
type Provider interface {
	Initialize(ctx context.Context) (BlockChain, error)
	Name() string
	ChainSelector() uint64
	BlockChain() BlockChain
	Close() error
}
