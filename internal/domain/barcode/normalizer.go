// Package barcode turns raw captured scanner text into canonical codes.
//
// Normalization is a pure function of (raw, policy): the single-flight key and
// the camera cooldown both compare normalized codes, so identical input must
// always yield identical output.
package barcode

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/jhoicas/scanner-agent/internal/domain"
)

// Policy selects the accepted character class.
type Policy int

const (
	// PolicyStrict keeps digits only and repairs common UPC-A truncations.
	// Used for wedge/trigger input.
	PolicyStrict Policy = iota
	// PolicyLenient strips whitespace only. Used for manual entry and camera
	// paths that decode non-numeric symbologies.
	PolicyLenient
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyLenient:
		return "lenient"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses "strict" or "lenient" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "":
		return PolicyStrict, nil
	case "lenient":
		return PolicyLenient, nil
	}
	return PolicyStrict, fmt.Errorf("barcode: unknown policy %q: %w", s, domain.ErrInvalidInput)
}

// Code is a normalized, non-empty barcode.
type Code string

func (c Code) String() string { return string(c) }

// Normalize applies policy to raw. It returns domain.ErrInvalidCode when
// nothing survives.
func Normalize(raw string, policy Policy) (Code, error) {
	var out string
	switch policy {
	case PolicyLenient:
		out = stripSpace(raw)
	default:
		out = upcA(digitsOnly(raw))
	}
	if out == "" {
		return "", domain.ErrInvalidCode
	}
	return Code(out), nil
}

// digitsOnly folds full-width digits (some IME keyboard layouts emit them
// from wedge scanners) and drops everything but ASCII 0-9.
func digitsOnly(raw string) string {
	folded := width.Fold.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// upcA maps 11-digit truncations and EAN-13 renderings of UPC-A codes onto
// the 12-digit UPC-A form the catalog is keyed by.
func upcA(digits string) string {
	switch {
	case len(digits) == 11:
		return "0" + digits
	case len(digits) == 13 && digits[0] == '0':
		return digits[1:]
	}
	return digits
}

func stripSpace(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}
