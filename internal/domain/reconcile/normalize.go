package reconcile

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Fold canonicalizes a string for identity and drift comparison:
// Unicode NFC, lowercase, and all spaces removed. Source files arrive
// with inconsistent casing and stray whitespace; naive equality would
// report drift on every pass and cause perpetual remote updates.
func Fold(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "")
}

// EqualFolded reports whether two strings are equal after folding.
func EqualFolded(a, b string) bool {
	return Fold(a) == Fold(b)
}

// EqualAccessID compares two external identifiers. Ids are numeric in the
// legacy dataset but travel as strings with inconsistent formatting, so
// both sides are parsed as integers when possible and folded otherwise.
func EqualAccessID(a, b string) bool {
	ai, aerr := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	bi, berr := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if aerr == nil && berr == nil {
		return ai == bi
	}
	return EqualFolded(a, b)
}

// EqualRounded compares two amounts after rounding to whole units,
// absorbing float/string representation differences ("10.00" vs 10).
func EqualRounded(a, b decimal.Decimal) bool {
	return a.Round(0).Equal(b.Round(0))
}

// ParsePrice converts a raw price cell to a decimal, treating empty or
// malformed values as zero. Availability wins over strict validation here.
func ParsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")))
	if err != nil {
		return decimal.Zero
	}
	return d
}
