package scoring

import (
	"math"
	"strings"
	"unicode"
)

// Compression compares the token volume of a source text with its parsed
// rendition and how much of the source vocabulary survived.
type Compression struct {
	OriginalTokens   int     `json:"original_tokens"`
	CompressedTokens int     `json:"compressed_tokens"`
	Ratio            float64 `json:"ratio"`
	Retention        float64 `json:"retention"`
	Effective        float64 `json:"effective"`
}

// EstimateTokens counts Han runes at 1.5 per token and everything else at 4.
func EstimateTokens(text string) int {
	var han, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
		} else {
			other++
		}
	}
	return int(math.Ceil(float64(han)/1.5)) + int(math.Ceil(float64(other)/4))
}

func CompressionOf(original, compressed string) Compression {
	c := Compression{
		OriginalTokens:   EstimateTokens(original),
		CompressedTokens: EstimateTokens(compressed),
		Ratio:            1,
	}
	if c.CompressedTokens > 0 {
		c.Ratio = float64(c.OriginalTokens) / float64(c.CompressedTokens)
	}
	c.Retention = Retention(original, compressed)
	c.Effective = c.Ratio * c.Retention
	return c
}

// Retention is the fraction of significant source words (longer than two
// runes) that are a substring or superstring of some compressed word.
func Retention(original, compressed string) float64 {
	if strings.TrimSpace(original) == "" {
		return 1
	}
	if strings.TrimSpace(compressed) == "" {
		return 0
	}

	cw := words(compressed)
	seen := make(map[string]bool, len(cw))
	for _, w := range cw {
		seen[w] = true
	}

	var significant, covered int
	for _, w := range words(original) {
		if len([]rune(w)) <= 2 {
			continue
		}
		significant++
		if seen[w] {
			covered++
			continue
		}
		for _, c := range cw {
			if strings.Contains(c, w) || strings.Contains(w, c) {
				covered++
				break
			}
		}
	}
	if significant == 0 {
		return 1
	}
	return float64(covered) / float64(significant)
}
