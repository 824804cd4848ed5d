// Package textnorm canonicalizes display names into comparison keys.
// Pure functions, no I/O.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// French articles and prepositions dropped during normalization.
var articles = map[string]struct{}{
	"de":  {},
	"du":  {},
	"des": {},
	"le":  {},
	"la":  {},
	"les": {},
}

// StripAccents removes diacritical marks ("é" becomes "e").
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize derives a comparison key from a display name: lower-case,
// accents stripped, French articles removed, everything non-alphanumeric
// dropped. Idempotent and total (empty in, empty out).
func Normalize(s string) string {
	lower := StripAccents(strings.ToLower(strings.TrimSpace(s)))
	lower = strings.ReplaceAll(lower, "l'", " ")

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, tok := range tokens {
		if _, skip := articles[tok]; skip {
			continue
		}
		b.WriteString(tok)
	}
	return b.String()
}
