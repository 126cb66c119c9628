// Package deployment records where contracts were deployed, per chain, so later commands can
// find them again.
package deployment

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

var (
	ErrInvalidChainSelector = errors.New("invalid chain selector")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrChainNotFound        = errors.New("chain not found")
	ErrAddressNotFound      = errors.New("address not found")
)

// ContractType is a simple string type for identifying contract types.
type ContractType string

func (ct ContractType) String() string {
	return string(ct)
}

// TypeAndVersion identifies what was deployed at an address, e.g. "Lottery 1.0.0".
type TypeAndVersion struct {
	Type    ContractType
	Version semver.Version
}

// NewTypeAndVersion returns a TypeAndVersion.
func NewTypeAndVersion(t ContractType, v semver.Version) TypeAndVersion {
	return TypeAndVersion{Type: t, Version: v}
}

// MustTypeAndVersionFromString is TypeAndVersionFromString for constants. It panics on error.
func MustTypeAndVersionFromString(s string) TypeAndVersion {
	tv, err := TypeAndVersionFromString(s)
	if err != nil {
		panic(err)
	}

	return tv
}

// TypeAndVersionFromString parses "<type> <semver>".
func TypeAndVersionFromString(s string) (TypeAndVersion, error) {
	parts := strings.Fields(s) // Ignores consecutive spaces
	if len(parts) != 2 {
		return TypeAndVersion{}, fmt.Errorf("invalid type and version string: %q", s)
	}

	v, err := semver.NewVersion(parts[1])
	if err != nil {
		return TypeAndVersion{}, fmt.Errorf("invalid version in %q: %w", s, err)
	}

	return TypeAndVersion{Type: ContractType(parts[0]), Version: *v}, nil
}

func (tv TypeAndVersion) String() string {
	return fmt.Sprintf("%s %s", tv.Type, tv.Version.String())
}

// Equal reports whether both type and version match.
func (tv TypeAndVersion) Equal(other TypeAndVersion) bool {
	return tv.Type == other.Type && tv.Version.Equal(&other.Version)
}

// MarshalText encodes tv as "<type> <semver>", which keeps address book files readable.
func (tv TypeAndVersion) MarshalText() ([]byte, error) {
	return []byte(tv.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (tv *TypeAndVersion) UnmarshalText(text []byte) error {
	parsed, err := TypeAndVersionFromString(string(text))
	if err != nil {
		return err
	}
	*tv = parsed

	return nil
}

// AddressBook is a simple interface for storing and retrieving contract addresses across
// chains. Keys are chain selectors and EVM addresses are always stored in EIP55 format.
type AddressBook interface {
	Save(chainSelector uint64, address string, tv TypeAndVersion) error
	Addresses() (map[uint64]map[string]TypeAndVersion, error)
	AddressesForChain(chain uint64) (map[string]TypeAndVersion, error)
	// Allows for merging address books (e.g. new deployments with existing ones)
	Merge(other AddressBook) error
	Remove(ab AddressBook) error
}

var _ AddressBook = (*AddressBookMap)(nil)

// AddressBookMap is an in-memory AddressBook. Chains and addresses are kept sorted.
type AddressBookMap struct {
	addressesByChain *treemap.Map // map[uint64]*treemap.Map[string]TypeAndVersion
	mtx              sync.RWMutex
}

// NewMemoryAddressBook returns an empty AddressBookMap.
func NewMemoryAddressBook() *AddressBookMap {
	return &AddressBookMap{
		addressesByChain: treemap.NewWith(utils.UInt64Comparator),
	}
}

// NewMemoryAddressBookFromMap validates and loads addressesByChain into a new AddressBookMap.
func NewMemoryAddressBookFromMap(addressesByChain map[uint64]map[string]TypeAndVersion) (*AddressBookMap, error) {
	ab := NewMemoryAddressBook()
	for chainSelector, addresses := range addressesByChain {
		for address, tv := range addresses {
			if err := ab.save(chainSelector, address, tv); err != nil {
				return nil, err
			}
		}
	}

	return ab, nil
}

// normalizeAddress checks address for the family of chainSelector and returns its canonical
// form.
func normalizeAddress(chainSelector uint64, address string) (string, error) {
	family, err := chainsel.GetSelectorFamily(chainSelector)
	if err != nil {
		return "", fmt.Errorf("chain selector %d: %w", chainSelector, ErrInvalidChainSelector)
	}
	if family != chainsel.FamilyEVM {
		return "", fmt.Errorf("chain selector %d is a %s chain, only EVM chains are supported: %w",
			chainSelector, family, ErrInvalidChainSelector,
		)
	}

	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("address %q is not a valid Ethereum address: %w", address, ErrInvalidAddress)
	}

	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return "", fmt.Errorf("address cannot be the zero address: %w", ErrInvalidAddress)
	}

	return addr.Hex(), nil
}

func (m *AddressBookMap) save(chainSelector uint64, address string, tv TypeAndVersion) error {
	address, err := normalizeAddress(chainSelector, address)
	if err != nil {
		return err
	}
	if tv.Type == "" {
		return errors.New("type cannot be empty")
	}

	chainAddresses, exists := m.addressesByChain.Get(chainSelector)
	if !exists {
		chainAddresses = treemap.NewWithStringComparator()
		m.addressesByChain.Put(chainSelector, chainAddresses)
	}

	chainMap := chainAddresses.(*treemap.Map)
	if _, exists := chainMap.Get(address); exists {
		return fmt.Errorf("address %s already exists for chain %d", address, chainSelector)
	}
	chainMap.Put(address, tv)

	return nil
}

// Save records address on chainSelector. It errors if the address is already recorded.
func (m *AddressBookMap) Save(chainSelector uint64, address string, tv TypeAndVersion) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.save(chainSelector, address, tv)
}

// Addresses returns a copy of every recorded address, by chain.
func (m *AddressBookMap) Addresses() (map[uint64]map[string]TypeAndVersion, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	result := make(map[uint64]map[string]TypeAndVersion, m.addressesByChain.Size())
	it := m.addressesByChain.Iterator()
	for it.Next() {
		result[it.Key().(uint64)] = chainMapToMap(it.Value().(*treemap.Map))
	}

	return result, nil
}

// AddressesForChain returns a copy of the addresses recorded on chainSelector.
func (m *AddressBookMap) AddressesForChain(chainSelector uint64) (map[string]TypeAndVersion, error) {
	if _, err := chainsel.GetChainIDFromSelector(chainSelector); err != nil {
		return nil, fmt.Errorf("chain selector %d: %w", chainSelector, ErrInvalidChainSelector)
	}

	m.mtx.RLock()
	defer m.mtx.RUnlock()

	chainAddresses, exists := m.addressesByChain.Get(chainSelector)
	if !exists {
		return nil, fmt.Errorf("chain selector %d: %w", chainSelector, ErrChainNotFound)
	}

	return chainMapToMap(chainAddresses.(*treemap.Map)), nil
}

// Merge adds the addresses of ab. It errors on any address already recorded, and then leaves
// the book unchanged.
func (m *AddressBookMap) Merge(ab AddressBook) error {
	addresses, err := ab.Addresses()
	if err != nil {
		return err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	staged := NewMemoryAddressBook()
	staged.addressesByChain = cloneChains(m.addressesByChain)
	for chainSelector, chainAddresses := range addresses {
		for address, tv := range chainAddresses {
			if err := staged.save(chainSelector, address, tv); err != nil {
				return err
			}
		}
	}
	m.addressesByChain = staged.addressesByChain

	return nil
}

// Remove deletes the addresses of ab. It errors, leaving the book unchanged, if any of them is
// not recorded.
func (m *AddressBookMap) Remove(ab AddressBook) error {
	addresses, err := ab.Addresses()
	if err != nil {
		return err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	for chainSelector, chainAddresses := range addresses {
		chainMap, exists := m.addressesByChain.Get(chainSelector)
		if !exists {
			return fmt.Errorf("chain selector %d: %w", chainSelector, ErrChainNotFound)
		}

		treeMap := chainMap.(*treemap.Map)
		for address := range chainAddresses {
			if _, exists := treeMap.Get(address); !exists {
				return fmt.Errorf("address %s on chain %d: %w", address, chainSelector, ErrAddressNotFound)
			}
		}
	}

	for chainSelector, chainAddresses := range addresses {
		chainMap, _ := m.addressesByChain.Get(chainSelector)
		treeMap := chainMap.(*treemap.Map)
		for address := range chainAddresses {
			treeMap.Remove(address)
		}
		if treeMap.Empty() {
			m.addressesByChain.Remove(chainSelector)
		}
	}

	return nil
}

// SearchAddressBook returns the address of the highest version of typ recorded on chain.
func SearchAddressBook(ab AddressBook, chain uint64, typ ContractType) (string, error) {
	addrs, err := ab.AddressesForChain(chain)
	if err != nil {
		return "", err
	}

	var (
		found string
		best  *semver.Version
	)
	for addr, tv := range addrs {
		if tv.Type != typ {
			continue
		}
		// Ties on version resolve to the lowest address, so the answer does not depend on map order.
		if best == nil || tv.Version.GreaterThan(best) || (tv.Version.Equal(best) && addr < found) {
			v := tv.Version
			best, found = &v, addr
		}
	}

	if found == "" {
		return "", fmt.Errorf("%s on chain %d: %w", typ, chain, ErrAddressNotFound)
	}

	return found, nil
}

func chainMapToMap(chainMap *treemap.Map) map[string]TypeAndVersion {
	result := make(map[string]TypeAndVersion, chainMap.Size())
	it := chainMap.Iterator()
	for it.Next() {
		result[it.Key().(string)] = it.Value().(TypeAndVersion)
	}

	return result
}

func cloneChains(src *treemap.Map) *treemap.Map {
	dst := treemap.NewWith(utils.UInt64Comparator)
	it := src.Iterator()
	for it.Next() {
		chainMap := treemap.NewWithStringComparator()
		chainIt := it.Value().(*treemap.Map).Iterator()
		for chainIt.Next() {
			chainMap.Put(chainIt.Key(), chainIt.Value())
		}
		dst.Put(it.Key(), chainMap)
	}

	return dst
}
