package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining diacritical marks: decompose, drop
// the marks, recompose.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds an identifier for comparison: trimmed, lowercased,
// diacritics removed. Every identifier compared across the system (logins,
// DNs, company ids) goes through this function so equality is accent- and
// case-insensitive.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Invalid UTF-8 input is folded as-is.
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// NormalizeAll normalizes every element of a slice, preserving order.
func NormalizeAll(values []string) []string {
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = Normalize(v)
	}
	return result
}
