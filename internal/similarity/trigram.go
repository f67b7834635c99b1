// Package similarity scores string closeness the same way the pg_trgm
// extension does, so the in-memory stores used in tests rank and filter
// identically to the production SQL path.
package similarity

import (
	"strings"
	"unicode"
)

// trigrams extracts the trigram set of s following pg_trgm: lowercase,
// split into alphanumeric words, pad each word with two leading and one
// trailing space, then take every 3-byte window.
func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := "  " + w + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = struct{}{}
		}
	}
	return set
}

// Score returns the trigram similarity of a and b in [0,1]. The division
// happens in single precision because pg_trgm's similarity() returns real;
// threshold comparisons such as similarity('Jon','Jonathan') > 0.3 only
// agree with Postgres if the same rounding is applied here.
func Score(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(float32(shared) / float32(union))
}
