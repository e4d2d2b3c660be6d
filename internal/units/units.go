// Package units converts between human decimal strings and integer base
// units without floating point.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Percent units accepted for allocation shares.
const (
	UnitBps     = "bps"
	UnitPercent = "percent"
)

// maxExponent bounds the decimal exponent of parsed input. uint256 needs 78
// digits, so anything beyond this is out of range before scaling.
const maxExponent = 96

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more fractional digits than the token allows")
	ErrInvalidShare  = errors.New("invalid share")
)

// ParseUnits parses a decimal string like "1.5" into base units at the given
// number of decimals. Fractional digits beyond decimals are rejected rather
// than rounded.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	d, err := parseDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q at %d decimals", ErrTooPrecise, s, decimals)
	}
	return scaled.BigInt(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return decimal.Decimal{}, fmt.Errorf("exponent %d out of range", e)
	}
	return d, nil
}

// MustParseUnits is ParseUnits for constants; it panics on error.
func MustParseUnits(s string, decimals uint8) *big.Int {
	v, err := ParseUnits(s, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatUnits renders base units as a decimal string with trailing zeros
// trimmed: 1500000000000000000 at 18 decimals is "1.5".
func FormatUnits(x *big.Int, decimals uint8) string {
	if x == nil {
		return "0"
	}
	return decimal.NewFromBigInt(x, -int32(decimals)).String()
}

// ParseShare parses an allocation share into basis points. In UnitPercent,
// "12.5" means 1250 bps; in UnitBps the value must be an integer.
func ParseShare(s, unit string) (uint32, error) {
	d, err := parseDecimal(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidShare, s)
	}
	switch unit {
	case UnitBps, "":
	case UnitPercent:
		d = d.Shift(2)
	default:
		return 0, fmt.Errorf("%w: unknown unit %q (use %s or %s)", ErrInvalidShare, unit, UnitBps, UnitPercent)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(decimal.NewFromInt(10_000)) {
		return 0, fmt.Errorf("%w: %q %s is not a whole number of bps within 0..10000", ErrInvalidShare, s, unit)
	}
	return uint32(d.IntPart()), nil
}

// FormatShare renders basis points as a percentage, e.g. 1250 -> "12.5%".
func FormatShare(bps uint32) string {
	return decimal.New(int64(bps), -2).String() + "%"
}
