package gov

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the fixed exponent of the governance token and native coin.
const EtherDecimals = 18

// FormatUnits renders a raw smallest-unit integer as a decimal string with
// trailing zeros trimmed, e.g. 1500000000000000000 @18 => "1.5".
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ParseUnits is the exact inverse of FormatUnits. Fractional digits beyond
// decimals are rejected instead of rounded.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: negative", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimal places", s, decimals)
	}
	return scaled.BigInt(), nil
}

func FormatEther(raw *big.Int) string { return FormatUnits(raw, EtherDecimals) }

func ParseEther(s string) (*big.Int, error) { return ParseUnits(s, EtherDecimals) }

// Amount pairs a raw value with its human-scaled rendering for JSON output.
type Amount struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

func NewAmount(raw *big.Int, decimals uint8) Amount {
	if raw == nil {
		raw = new(big.Int)
	}
	return Amount{Raw: raw.String(), Formatted: FormatUnits(raw, decimals)}
}
