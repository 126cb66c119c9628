package utils

import (
	"fmt"
	"math/big"

	chain_selectors "github.com/smartcontractkit/chain-selectors"
)

// ChainInfo returns the chain info for the given selector.
// It returns an error if the selector is invalid or if the chain info cannot be retrieved.
func ChainInfo(cs uint64) (chain_selectors.ChainDetails, error) {
	id, err := chain_selectors.GetChainIDFromSelector(cs)
	if err != nil {
		return chain_selectors.ChainDetails{}, err
	}
	family, err := chain_selectors.GetSelectorFamily(cs)
	if err != nil {
		return chain_selectors.ChainDetails{}, err
	}
	info, err := chain_selectors.GetChainDetailsByChainIDAndFamily(id, family)
	if err != nil {
		return chain_selectors.ChainDetails{}, err
	}

	return info, nil
}

// EVMChainID returns the numeric chain ID of an EVM chain selector.
func EVMChainID(cs uint64) (*big.Int, error) {
	family, err := chain_selectors.GetSelectorFamily(cs)
	if err != nil {
		return nil, err
	}
	if family != chain_selectors.FamilyEVM {
		return nil, fmt.Errorf("chain selector %d belongs to family %q, only %q is supported",
			cs, family, chain_selectors.FamilyEVM,
		)
	}

	idStr, err := chain_selectors.GetChainIDFromSelector(cs)
	if err != nil {
		return nil, err
	}

	id, ok := new(big.Int).SetString(idStr, 10)
	if !ok {
		return nil, fmt.Errorf("failed to convert chain ID %s to big.Int", idStr)
	}

	return id, nil
}

// EVMSelector returns the chain selector of the EVM chain with the given chain ID.
func EVMSelector(chainID string) (uint64, error) {
	info, err := chain_selectors.GetChainDetailsByChainIDAndFamily(chainID, chain_selectors.FamilyEVM)
	if err != nil {
		return 0, fmt.Errorf("no EVM chain selector for chain ID %s: %w", chainID, err)
	}

	return info.ChainSelector, nil
}
