// Package units converts between wei and the named denominations used for display and input.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a named ether denomination.
type Unit string

const (
	Wei    Unit = "wei"
	Kwei   Unit = "kwei"
	Mwei   Unit = "mwei"
	Gwei   Unit = "gwei"
	Szabo  Unit = "szabo"
	Finney Unit = "finney"
	Ether  Unit = "ether"
)

var (
	// ErrFormat is returned when an amount is not a non-negative decimal number that can be
	// represented in whole wei.
	ErrFormat = errors.New("invalid amount format")
	// ErrUnknownUnit is returned for a denomination that is not supported.
	ErrUnknownUnit = errors.New("unknown unit")
)

var decimalsByUnit = map[Unit]int32{
	Wei:    0,
	Kwei:   3,
	Mwei:   6,
	Gwei:   9,
	Szabo:  12,
	Finney: 15,
	Ether:  18,
}

// amountPattern accepts "1", "1.", "1.5" and ".5". Signs and exponents are rejected.
var amountPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// ParseUnit returns the Unit named by s, case-insensitively.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := decimalsByUnit[u]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}

	return u, nil
}

// Decimals returns the number of decimal places between the unit and wei.
func (u Unit) Decimals() (int32, error) {
	d, ok := decimalsByUnit[u]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(u))
	}

	return d, nil
}

// ToWei converts a decimal amount expressed in unit into wei.
func ToWei(amount string, unit Unit) (*big.Int, error) {
	decimals, err := unit.Decimals()
	if err != nil {
		return nil, err
	}

	amount = strings.TrimSpace(amount)
	if !amountPattern.MatchString(amount) {
		return nil, fmt.Errorf("%w: %q is not a number", ErrFormat, amount)
	}
	if strings.HasSuffix(amount, ".") {
		amount += "0"
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	wei := d.Shift(decimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places for %s",
			ErrFormat, amount, decimals, unit,
		)
	}

	return wei.BigInt(), nil
}

// FromWei formats a wei amount in unit, without trailing zeros. A nil amount formats as "0".
func FromWei(wei *big.Int, unit Unit) (string, error) {
	decimals, err := unit.Decimals()
	if err != nil {
		return "", err
	}
	if wei == nil {
		return "0", nil
	}

	return decimal.NewFromBigInt(wei, -decimals).String(), nil
}

// MustToWei is ToWei for constants known to be valid. It panics on error.
func MustToWei(amount string, unit Unit) *big.Int {
	wei, err := ToWei(amount, unit)
	if err != nil {
		panic(err)
	}

	return wei
}
