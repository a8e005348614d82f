package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics so "Thiès" and "THIES" compare equal
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// MatchesPlace reports whether term occurs anywhere in a stored place name,
// ignoring case and accents. A blank term matches every place.
func MatchesPlace(place, term string) bool {
	want := Fold(term)
	if want == "" {
		return true
	}
	return strings.Contains(Fold(place), want)
}
