// Package scoring measures parse output: edit-distance accuracy against a
// reference, table structure similarity (TEDS), token compression and an
// OCR document quality score.
package scoring

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CharacterAccuracy is 1 - lev(pred, truth)/max(len) over runes.
// Two empty strings are a perfect match; an empty side against a non-empty
// one scores 0.
func CharacterAccuracy(pred, truth string) float64 {
	p, t := []rune(pred), []rune(truth)
	if len(t) == 0 {
		if len(p) == 0 {
			return 1
		}
		return 0
	}
	if len(p) == 0 {
		return 0
	}
	d := levenshtein(p, t)
	return 1 - float64(d)/float64(max(len(p), len(t)))
}

// WordAccuracy is CharacterAccuracy over NFKC-normalised, lower-cased
// whitespace tokens.
func WordAccuracy(pred, truth string) float64 {
	p, t := words(pred), words(truth)
	if len(t) == 0 {
		if len(p) == 0 {
			return 1
		}
		return 0
	}
	if len(p) == 0 {
		return 0
	}
	d := levenshtein(p, t)
	return 1 - float64(d)/float64(max(len(p), len(t)))
}

func normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func words(s string) []string {
	return strings.Fields(normalize(s))
}

func levenshtein[T comparable](a, b []T) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
