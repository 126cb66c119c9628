package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractCaller is an interface that defines the CallContract method. This is copied from the
// go-ethereum package method to limit the scope of dependencies provided to the functions.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// getErrorReasonFromTx replays a mined transaction as a call at its block and returns the
// revert reason reported by the node.
func getErrorReasonFromTx(
	ctx context.Context,
	caller ContractCaller,
	from common.Address,
	tx *types.Transaction,
	receipt *types.Receipt,
) (string, error) {
	call := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Data:     tx.Data(),
		Value:    tx.Value(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
	}

	_, err := caller.CallContract(ctx, call, receipt.BlockNumber)
	if err == nil {
		return "", fmt.Errorf("tx %s reverted with no reason", tx.Hash().Hex())
	}

	data, perr := getJSONErrorData(err)
	if perr != nil || data == "" || data == "0x" {
		// Nothing structured to decode, the node's message is the best reason available.
		return err.Error(), nil
	}

	return decodeRevertData(data), nil
}

// decodeRevertData turns hex revert data into a readable reason. Error(string) payloads are
// unpacked, anything else is returned as is.
func decodeRevertData(data string) string {
	raw, err := hexutil.Decode(data)
	if err != nil {
		return data
	}

	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return data
	}

	return reason
}

// getJSONErrorData extracts the error data from a JSON Error.
func getJSONErrorData(err error) (string, error) {
	if err == nil {
		return "", errors.New("cannot parse nil error")
	}

	// Matches the private JSON error type of go-ethereum's rpc package.
	type jsonError interface {
		Error() string
		ErrorCode() int
		ErrorData() any
	}

	var jerr jsonError
	if !errors.As(err, &jerr) {
		return "", fmt.Errorf("error must be of type jsonError: %w", err)
	}

	if jerr.ErrorData() == nil {
		if strings.Contains(jerr.Error(), "missing trie node") {
			return "", errors.New("missing trie node, likely due to not using an archive node")
		}

		return "", nil
	}

	return fmt.Sprintf("%s", jerr.ErrorData()), nil
}
