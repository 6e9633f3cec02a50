// Package normalize implements the pure, side-effect free C1 Normalizer:
// accent/case folding, national-ID parsing and check-digit verification,
// email/phone canonicalization, and string similarity. Nothing in this
// package performs I/O or returns a *coreerr.Error — callers (rowvalidate,
// schemafit, registry) decide what an error here means for their own
// ErrorKind/Kind taxonomy.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold applies NFD decomposition, strips combining marks, lower-cases, and
// collapses internal whitespace — the single comparison-insensitive
// transform every other Normalizer function and the Schema Fitter build on.
func Fold(s string) string {
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) { // combining mark
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return collapseWhitespace(strings.TrimSpace(b.String()))
}

// NormalizeName applies Fold, then strips punctuation (keeping hyphens),
// then collapses whitespace again since punctuation removal can introduce
// runs of spaces.
func NormalizeName(s string) string {
	folded := Fold(s)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '-', r == ' ':
			b.WriteRune(r)
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return collapseWhitespace(strings.TrimSpace(b.String()))
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
