package provider

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
)

// DefaultDevMnemonic is the well known development mnemonic used by ganache and anvil. Never
// use it for anything holding real funds.
const DefaultDevMnemonic = "test test test test test test test test test test test junk"

const (
	bip44Purpose  = 44
	bip44CoinType = 60 // ether
)

// ErrInvalidMnemonic is returned when a mnemonic fails the BIP39 checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// DeriveMnemonicKey returns the private key at m/44'/60'/0'/0/index for mnemonic, with an
// empty passphrase.
func DeriveMnemonicKey(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}

	// The network only affects serialization of extended keys, never the derived key bytes.
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + bip44Purpose,
		hdkeychain.HardenedKeyStart + bip44CoinType,
		hdkeychain.HardenedKeyStart + 0, // account
		0,                               // external chain
		index,
	}
	for _, child := range path {
		key, err = key.Derive(child)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d of account %d: %w", child, index, err)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get private key of account %d: %w", index, err)
	}

	return privKey.ToECDSA(), nil
}
