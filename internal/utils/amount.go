// Package utils holds small value-conversion helpers shared by the workers.
package utils

import (
	"math/big"
	"strings"
)

// ToDecimal renders a raw chain amount as a decimal string using the token's
// decimals, trimming trailing fraction zeros. Unparseable input comes back
// unchanged so raw values are never lost.
func ToDecimal(raw string, decimals int) string {
	if decimals <= 0 || raw == "" {
		return raw
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return raw
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, divisor, new(big.Int))
	frac.Abs(frac)

	fracStr := strings.TrimRight(padLeft(frac.String(), decimals), "0")
	if fracStr == "" {
		return whole.String()
	}
	return whole.String() + "." + fracStr
}

// SumDecimals adds two decimal strings without float rounding. Inputs that
// do not parse count as zero.
func SumDecimals(a, b string) string {
	ra, okA := new(big.Rat).SetString(a)
	rb, okB := new(big.Rat).SetString(b)
	if !okA {
		ra = new(big.Rat)
	}
	if !okB {
		rb = new(big.Rat)
	}
	sum := new(big.Rat).Add(ra, rb)
	if sum.IsInt() {
		return sum.Num().String()
	}
	out := strings.TrimRight(sum.FloatString(18), "0")
	return strings.TrimSuffix(out, ".")
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
