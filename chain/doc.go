/*
Package chain defines the blockchain abstraction the lottery client is built on.

A BlockChain describes a chain by selector, name and family. Providers set a chain up and hand
back the family specific implementation, which for the lottery is always an evm.Chain:

	p := provider.NewSimChainProvider(chainsel.GETH_TESTNET.Selector, provider.SimChainProviderConfig{
		NumAdditionalAccounts: 3,
	})
	bc, err := p.Initialize(ctx)
	if err != nil {
		return err
	}
	evmChain := bc.(evm.Chain)

The provider package has two implementations: SimChainProvider, an in-memory chain backed by
go-ethereum's simulated backend, and RPCChainProvider, which connects to a node over JSON-RPC.
*/
package chain
