// Package normalize cleans up donor identity text arriving from CSV files
// and hand entry before it is stored or matched.
package normalize

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"unicode"
)

// stripMarks removes combining marks after NFD decomposition, so "José"
// folds to "Jose" and trigram comparisons stop caring about accents.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name trims, collapses internal whitespace, and folds diacritics. Case is
// preserved; the matcher's lookups are case-insensitive already.
func Name(s string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(s))
	if err != nil {
		folded = strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// Email lowercases and trims; anything else is left to the matcher's
// plausibility check.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Zip keeps the leading five digits of a US zip, tolerating ZIP+4 and
// stray punctuation. Returns "" when fewer than five digits are present.
func Zip(s string) string {
	var digits []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) < 5 {
		return ""
	}
	return string(digits[:5])
}
