// Package logmath implements arithmetic on quantities stored as base-10 logarithms.
//
// Resource amounts in the simulator span thousands of orders of magnitude, far beyond
// float64 range, so every amount is carried as its log10 and combined here.
package logmath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NegligibleOrders is the floor-part gap above which the smaller operand of Add or Sub
// is dropped and the larger one returned unchanged.
const NegligibleOrders = 40

// ErrBadNumber is returned by Parse for text that is not "<mantissa>e<exponent>".
var ErrBadNumber = errors.New("malformed number")

// split returns the operands ordered by size together with their floor parts and
// exponentiated fractional parts.
func split(a, b float64) (whole1, frac1, whole2, frac2, larger float64) {
	hi := math.Max(a, b)
	lo := math.Min(a, b)
	whole1 = math.Floor(hi)
	frac1 = math.Pow(10, hi-whole1)
	whole2 = math.Floor(lo)
	frac2 = math.Pow(10, lo-whole2)
	return whole1, frac1, whole2, frac2, hi
}

// Add returns log10(10^a + 10^b).
func Add(a, b float64) float64 {
	whole1, frac1, whole2, frac2, hi := split(a, b)
	if whole1 > whole2+NegligibleOrders {
		return hi
	}
	return whole1 + math.Log10(frac1+frac2/math.Pow(10, whole1-whole2))
}

// Sub returns log10(10^a - 10^b). The caller must guarantee 10^a >= 10^b; the
// result is meaningless otherwise.
func Sub(a, b float64) float64 {
	whole1, frac1, whole2, frac2, hi := split(a, b)
	if whole1 > whole2+NegligibleOrders {
		return hi
	}
	return whole1 + math.Log10(frac1-frac2/math.Pow(10, whole1-whole2))
}

// Format renders a log10 value as "<mantissa>e<exponent>" with the mantissa rounded
// to two decimals, e.g. Format(2.30103) == "2e2".
func Format(x float64) string {
	exp := math.Floor(x)
	m := math.Pow(10, x-exp)
	m = math.Round(100*m) / 100
	return strconv.FormatFloat(m, 'f', -1, 64) + "e" + strconv.FormatFloat(exp, 'f', -1, 64)
}

// Parse is the inverse of Format. Plain decimal numbers without an exponent are
// accepted as well.
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", ErrBadNumber)
	}

	parts := strings.Split(s, "e")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || !(v > 0) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
		}
		return math.Log10(v), nil
	case 2:
		m, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || m <= 0 {
			return 0, fmt.Errorf("%w: mantissa of %q", ErrBadNumber, s)
		}
		e, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: exponent of %q", ErrBadNumber, s)
		}
		return e + math.Log10(m), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
}

// FormatDuration renders simulated seconds as "<d>d <h>h <m>min".
func FormatDuration(seconds float64) string {
	mins := math.Floor(seconds / 60)
	hours := math.Floor(mins / 60)
	mins -= 60 * hours
	days := math.Floor(hours / 24)
	hours -= 24 * days
	return fmt.Sprintf("%.0fd %.0fh %.0fmin", days, hours, mins)
}
