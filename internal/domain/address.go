package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var addressFolder = cases.Fold()

// NormalizeAddress produces a stable key for an address string:
// Unicode NFKC, case-folded, whitespace collapsed.
// It is used for store keys only; providers always receive the original text.
func NormalizeAddress(s string) string {
	s = norm.NFKC.String(s)
	s = addressFolder.String(s)
	return strings.Join(strings.Fields(s), " ")
}
