// Package calc derives line and document totals from raw field text.
//
// Nothing in this package returns an error: text that does not parse as a
// non-negative finite decimal number counts as zero, so a half-typed field
// never blocks the preview.
package calc

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// amountRe is the whole-field decimal grammar. Hex literals, digit separators,
// NaN/Inf spellings and trailing garbage do not match.
var amountRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseAmount parses a quantity or price field. ok is false when raw is empty,
// not a decimal number, not finite, or negative.
func ParseAmount(raw string) (v float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" || !amountRe.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v < 0 {
		return 0, false
	}
	if v == 0 {
		// -0 and 0 print the same.
		v = 0
	}
	return v, true
}

// Valid reports whether raw currently parses as an amount.
func Valid(raw string) bool {
	_, ok := ParseAmount(raw)
	return ok
}

// LineTotal is quantity × price, or 0 when either side is invalid or the
// product overflows.
func LineTotal(quantity, price string) float64 {
	q, ok := ParseAmount(quantity)
	if !ok {
		return 0
	}
	p, ok := ParseAmount(price)
	if !ok {
		return 0
	}
	total := q * p
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return 0
	}
	return total
}

// Sum adds values left to right.
func Sum(values ...float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// FormatMoney renders v with exactly two fraction digits. Rounding works on the
// exact binary value and breaks exact half-cent ties away from zero.
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	a := math.Abs(v)
	s, tie := roundHalfCent(a)
	if !tie {
		s = strconv.FormatFloat(a, 'f', 2, 64)
	}
	if v < 0 {
		return "-" + s
	}
	return s
}

// FormatQuantity renders the quantity as typed, "0" when empty.
func FormatQuantity(raw string) string {
	if raw == "" {
		return "0"
	}
	return raw
}

// FormatPrice renders a unit price field, "0.00" when it does not parse.
func FormatPrice(raw string) string {
	v, ok := ParseAmount(raw)
	if !ok {
		return "0.00"
	}
	return FormatMoney(v)
}

// roundHalfCent rounds a value that sits exactly on a half cent up to the
// next cent. strconv would round it to even.
func roundHalfCent(a float64) (string, bool) {
	x := new(big.Float).SetPrec(128).SetFloat64(a)
	x.Mul(x, big.NewFloat(200))
	if !x.IsInt() {
		return "", false
	}
	n, _ := x.Int(nil)
	if n.Bit(0) == 0 {
		return "", false
	}
	// a*100 == n/2 with n odd.
	n.Add(n, big.NewInt(1))
	n.Rsh(n, 1)
	cents := n.String()
	for len(cents) < 3 {
		cents = "0" + cents
	}
	return cents[:len(cents)-2] + "." + cents[len(cents)-2:], true
}
