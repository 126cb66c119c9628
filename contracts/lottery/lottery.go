// Package lottery is a Go binding for the Lottery contract: a manager deploys it, players enter
// by paying at least MinimumEntry, and the manager picks a pseudo-random winner who receives the
// whole balance.
package lottery

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lotterykit/lottery/chainclient"
	"github.com/lotterykit/lottery/deployment"
	"github.com/lotterykit/lottery/pkg/units"
)

//go:embed Lottery.abi.json
var lotteryABI string

// LotteryBin is the creation code assembled from Lottery.asm. The first 17 bytes are the
// constructor, the rest is the runtime code.
const LotteryBin = "0x3360005561012c806100116000396000f36004361061003a5760003560e01c8063481c6a751461003f5780638b5b9ccc14610050578063e97dcb62146100955780635d495aea146100bd575b600080fd5b3461003a5760005460005260206000f35b3461003a576001600052602060002060206000526001548060205260005b8181101561008a5780830154816020026040015260010161006e565b506020026040016000f35b662386f26fc10000341061003a57600154600160005260206000208101339055600101600155005b3461003a5760005433141561003a57600154801561003a5744600052426020526001604052602060402060005b82811015610106578082015481602002604001526001016100ea565b50816020026040016000208290060154600080808047856000f11561003a57600060015500"

// runtimeOffset is the length of the constructor in LotteryBin.
const runtimeOffset = 17

// LotteryMetaData contains all meta data concerning the Lottery contract.
var LotteryMetaData = &bind.MetaData{
	ABI: lotteryABI,
	Bin: LotteryBin,
}

// ContractType is the address book type of the contract.
const ContractType deployment.ContractType = "Lottery"

// TypeAndVersion is recorded in the address book for every deployment of this binding.
var TypeAndVersion = deployment.MustTypeAndVersionFromString("Lottery 1.0.0")

// DeployGasLimit is the fixed gas limit used to deploy the contract.
const DeployGasLimit uint64 = 1_000_000

// MinimumEntry is the smallest value accepted by enter, 0.01 ether.
var MinimumEntry = units.MustToWei("0.01", units.Ether)

// ErrZeroAddress is returned when binding to the zero address.
var ErrZeroAddress = errors.New("lottery address must not be the zero address")

// Backend is what the binding needs from a chain client. It is implemented by
// *chainclient.Adapter.
type Backend interface {
	Call(ctx context.Context, contract chainclient.Contract, from common.Address, method string, args ...any) ([]any, error)
	Send(ctx context.Context, contract chainclient.Contract, from common.Address, value *big.Int, method string, args ...any) (*types.Transaction, error)
	Deploy(ctx context.Context, from common.Address, parsed abi.ABI, bin []byte, gasLimit uint64, params ...any) (common.Address, *types.Transaction, error)
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
}

var _ Backend = (*chainclient.Adapter)(nil)

// Snapshot is the state of the contract read at one point in time.
type Snapshot struct {
	Manager common.Address
	// Players in entry order.
	Players []common.Address
	// Balance of the contract in wei.
	Balance *big.Int
}

// Lottery is a handle to a deployed Lottery contract.
type Lottery struct {
	contract chainclient.Contract
	backend  Backend
}

// Deploy deploys a new Lottery contract managed by from.
func Deploy(ctx context.Context, backend Backend, from common.Address) (*Lottery, *types.Transaction, error) {
	parsed, err := LotteryMetaData.GetAbi()
	if err != nil {
		return nil, nil, err
	}
	if parsed == nil {
		return nil, nil, errors.New("GetABI returned nil")
	}

	address, tx, err := backend.Deploy(ctx, from, *parsed, common.FromHex(LotteryBin), DeployGasLimit)
	if err != nil {
		return nil, tx, err
	}

	return &Lottery{
		contract: chainclient.Contract{Address: address, ABI: *parsed},
		backend:  backend,
	}, tx, nil
}

// New binds to the Lottery contract deployed at address.
func New(address common.Address, backend Backend) (*Lottery, error) {
	if address == (common.Address{}) {
		return nil, ErrZeroAddress
	}

	parsed, err := LotteryMetaData.GetAbi()
	if err != nil {
		return nil, err
	}

	return &Lottery{
		contract: chainclient.Contract{Address: address, ABI: *parsed},
		backend:  backend,
	}, nil
}

// Address returns the address of the contract.
func (l *Lottery) Address() common.Address {
	return l.contract.Address
}

// Manager returns the account allowed to pick the winner.
func (l *Lottery) Manager(ctx context.Context) (common.Address, error) {
	out, err := l.backend.Call(ctx, l.contract, common.Address{}, "manager")
	if err != nil {
		return common.Address{}, err
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// GetPlayers returns the players in entry order.
func (l *Lottery) GetPlayers(ctx context.Context) ([]common.Address, error) {
	out, err := l.backend.Call(ctx, l.contract, common.Address{}, "getPlayers")
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// Enter adds from to the players, paying value. The contract rejects values below
// MinimumEntry.
func (l *Lottery) Enter(ctx context.Context, from common.Address, value *big.Int) (*types.Transaction, error) {
	return l.backend.Send(ctx, l.contract, from, value, "enter")
}

// PickWinner pays the whole balance to a pseudo-random player and clears the players. Only the
// manager may call it, and only while there are players.
func (l *Lottery) PickWinner(ctx context.Context, from common.Address) (*types.Transaction, error) {
	return l.backend.Send(ctx, l.contract, from, nil, "pickWinner")
}

// Balance returns the balance held by the contract, in wei.
func (l *Lottery) Balance(ctx context.Context) (*big.Int, error) {
	return l.backend.Balance(ctx, l.contract.Address)
}

// Snapshot reads manager, players and balance.
func (l *Lottery) Snapshot(ctx context.Context) (Snapshot, error) {
	manager, err := l.Manager(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read manager: %w", err)
	}

	players, err := l.GetPlayers(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read players: %w", err)
	}

	balance, err := l.Balance(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read balance: %w", err)
	}

	return Snapshot{Manager: manager, Players: players, Balance: balance}, nil
}

// RuntimeCode returns the code the contract leaves on chain after deployment.
func RuntimeCode() []byte {
	return hexutil.MustDecode(LotteryBin)[runtimeOffset:]
}
