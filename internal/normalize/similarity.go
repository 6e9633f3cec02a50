package normalize

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores two strings 0..100 using a token-sort ratio: each side
// is folded, split on whitespace, sorted, and rejoined before running
// difflib's SequenceMatcher.Ratio — the same library the teacher's
// internal/diff/differ.go uses for text comparison, applied here so that
// "Maria Jose Perez Soto" and "Perez Soto, Maria Jose" score as near-identical
// instead of penalizing reordered tokens.
func Similarity(a, b string) int {
	sortedA := tokenSort(a)
	sortedB := tokenSort(b)

	if sortedA == "" && sortedB == "" {
		return 100
	}

	matcher := difflib.NewMatcher(splitChars(sortedA), splitChars(sortedB))
	ratio := matcher.Ratio()

	return int(ratio*100 + 0.5)
}

func tokenSort(s string) string {
	folded := Fold(s)
	tokens := strings.Fields(folded)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
