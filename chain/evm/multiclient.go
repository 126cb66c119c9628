package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/lotterykit/lottery/pkg/logger"
)

const (
	// RPCDefaultDialTimeout bounds a single dial of an RPC endpoint.
	RPCDefaultDialTimeout = 10 * time.Second
	// RPCDefaultHealthCheckTimeout bounds the chain ID probe made after dialing.
	RPCDefaultHealthCheckTimeout = 2 * time.Second
)

// ErrNoHealthyRPC is returned when none of the configured RPC endpoints could be dialed and
// answered for the expected chain.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint")

// RPC is a named RPC endpoint.
type RPC struct {
	Name    string
	HTTPURL string
}

// MultiClient should comply with the OnchainClient interface
var _ OnchainClient = &MultiClient{}

// MultiClient is an ethclient connected to the first healthy endpoint of an ordered RPC list.
// Calls are never repeated against another endpoint; a failed call is returned to the caller.
type MultiClient struct {
	*ethclient.Client

	// RPC is the endpoint the client is connected to.
	RPC       RPC
	chainName string
}

// ChainName returns the name of the chain the client is connected to.
func (mc *MultiClient) ChainName() string {
	return mc.chainName
}

// DialMultiClient dials the rpcs in order and returns a client for the first endpoint which
// reports the chain ID of selector.
func DialMultiClient(
	ctx context.Context, lggr logger.Logger, selector uint64, rpcs []RPC,
) (*MultiClient, error) {
	if len(rpcs) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}

	chain, exists := chainsel.ChainBySelector(selector)
	if !exists {
		return nil, fmt.Errorf("chain with selector %d not found", selector)
	}
	wantChainID := new(big.Int).SetUint64(chain.EvmChainID)

	traceID := uuid.New()
	var errs error
	for i, rpc := range rpcs {
		lggr.Debugf("traceID %q: chain %q: rpc %q: dialing endpoint %s",
			traceID.String(), chain.Name, rpc.Name, rpc.HTTPURL,
		)

		client, err := dialAndCheck(ctx, rpc, wantChainID)
		if err != nil {
			lggr.Warnf("traceID %q: chain %q: rpc %d %q unusable, trying with the next one: %v",
				traceID.String(), chain.Name, i, rpc.Name, err,
			)
			errs = errors.Join(errs, fmt.Errorf("rpc %q: %w", rpc.Name, err))

			continue
		}

		return &MultiClient{Client: client, RPC: rpc, chainName: chain.Name}, nil
	}

	return nil, fmt.Errorf("%w for chain %s: %w", ErrNoHealthyRPC, chain.Name, errs)
}

func dialAndCheck(ctx context.Context, rpc RPC, wantChainID *big.Int) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, RPCDefaultDialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, rpc.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	checkCtx, cancelCheck := context.WithTimeout(ctx, RPCDefaultHealthCheckTimeout)
	defer cancelCheck()

	gotChainID, err := client.ChainID(checkCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	if gotChainID.Cmp(wantChainID) != 0 {
		client.Close()
		return nil, fmt.Errorf("endpoint serves chain ID %s, want %s", gotChainID, wantChainID)
	}

	return client, nil
}
