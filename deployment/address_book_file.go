package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAddressBookFile reads an address book written by WriteAddressBookFile. A missing file is
// an empty book. Files ending in .yaml or .yml are read as YAML, anything else as JSON.
func LoadAddressBookFile(path string) (*AddressBookMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewMemoryAddressBook(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read address book %s: %w", path, err)
	}

	var addresses map[uint64]map[string]TypeAndVersion
	if isYAML(path) {
		err = yaml.Unmarshal(data, &addresses)
	} else {
		err = json.Unmarshal(data, &addresses)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode address book %s: %w", path, err)
	}

	ab, err := NewMemoryAddressBookFromMap(addresses)
	if err != nil {
		return nil, fmt.Errorf("invalid address book %s: %w", path, err)
	}

	return ab, nil
}

// WriteAddressBookFile writes ab to path, replacing the file atomically.
func WriteAddressBookFile(path string, ab AddressBook) error {
	addresses, err := ab.Addresses()
	if err != nil {
		return err
	}

	var data []byte
	if isYAML(path) {
		data, err = yaml.Marshal(addresses)
	} else {
		data, err = json.MarshalIndent(addresses, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode address book: %w", err)
	}

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".addresses-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err = tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write address book: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write address book: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace address book %s: %w", path, err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
