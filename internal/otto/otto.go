// Package otto implements the downstream relation between hierarchical
// (Otto Pfafstetter style) basin codes.
//
// A code is a string of decimal digits. The leading digit names the primary
// basin; even digits continue a mainstem and odd digits open a tributary
// branch. Codes are compared as if they were decimal fractions 0.d1d2d3...
package otto

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedCode is returned when two codes look related but the
// downstream remainder vanishes once its padding zeros are stripped.
var ErrMalformedCode = errors.New("malformed hierarchical code")

// Valid reports whether c is a non-empty string of decimal digits.
// Invalid codes never take part in a downstream relation.
func Valid(c string) bool {
	if c == "" {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < '0' || c[i] > '9' {
			return false
		}
	}
	return true
}

// Downstream reports whether code a lies downstream of code b.
//
// Equal codes yield acceptSame. Missing or non-numeric codes yield false
// without error. The only error is ErrMalformedCode.
func Downstream(a, b string, acceptSame bool) (bool, error) {
	if !Valid(a) || !Valid(b) {
		return false, nil
	}
	if a[0] != b[0] {
		return false, nil
	}
	if a == b {
		return acceptSame, nil
	}

	n := commonPrefix(a, b)
	if n == 0 || !hasEven(a[:n]) {
		return false, nil
	}

	ra, rb := padRight(a[n:], b[n:])
	if ra[0] >= rb[0] {
		return false, nil
	}

	rest := strings.TrimRight(ra, "0")
	if rest == "" {
		return false, fmt.Errorf("%w: %q against %q", ErrMalformedCode, a, b)
	}
	for i := 0; i < len(rest); i++ {
		if (rest[i]-'0')%2 == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Compare orders two valid codes as decimal fractions: trailing zeros are
// insignificant and a smaller fraction is further downstream.
// It returns -1, 0 or +1.
func Compare(a, b string) int {
	a, b = padRight(a, b)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Between reports whether c lies strictly between lo and hi in the
// fractional ordering used by Compare.
func Between(c, lo, hi string) bool {
	return Compare(c, lo) > 0 && Compare(c, hi) < 0
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func hasEven(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i]-'0')%2 == 0 {
			return true
		}
	}
	return false
}

// padRight right-pads the shorter of a and b with zeros.
func padRight(a, b string) (string, string) {
	switch {
	case len(a) < len(b):
		a += strings.Repeat("0", len(b)-len(a))
	case len(b) < len(a):
		b += strings.Repeat("0", len(a)-len(b))
	}
	return a, b
}
