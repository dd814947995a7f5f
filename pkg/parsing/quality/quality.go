// Package quality decides whether directly extracted text is clean enough
// to skip OCR.
package quality

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinLength         = 100
	MaxGibberishRatio = 0.15
	MinAvgTokenLength = 1.5
	MaxAvgTokenLength = 20.0
	MinTokenDensity   = 0.08
	MinCJKRatio       = 0.10
)

var gibberish = regexp.MustCompile(`[^\p{L}\p{N}\s]{3,}`)

// Assessment holds the measured signals of a text sample.
type Assessment struct {
	Length         int     `json:"length"`
	GibberishRatio float64 `json:"gibberish_ratio"`
	AvgTokenLength float64 `json:"avg_token_length"`
	TokenDensity   float64 `json:"token_density"`
	CJKRatio       float64 `json:"cjk_ratio"`
	HighQuality    bool    `json:"high_quality"`
	Score          float64 `json:"score"`
	// Reason names the first failed check, empty when HighQuality.
	Reason string `json:"reason,omitempty"`
}

// Evaluate measures text. Lengths and ratios are computed in runes.
func Evaluate(text string) Assessment {
	if strings.TrimSpace(text) == "" {
		return Assessment{GibberishRatio: 1, Reason: "empty"}
	}

	n := utf8.RuneCountInString(text)
	tokens := strings.Fields(text)

	var tokenRunes, cjk int
	for _, tok := range tokens {
		tokenRunes += utf8.RuneCountInString(tok)
	}
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}

	var junk int
	for _, m := range gibberish.FindAllString(text, -1) {
		junk += utf8.RuneCountInString(m)
	}

	a := Assessment{
		Length:         n,
		GibberishRatio: float64(junk) / float64(n),
		TokenDensity:   float64(len(tokens)) / float64(n),
		CJKRatio:       float64(cjk) / float64(n),
	}
	if len(tokens) > 0 {
		a.AvgTokenLength = float64(tokenRunes) / float64(len(tokens))
	}

	a.Score = 0.3*math.Min(1, float64(n)/1000) +
		0.4*math.Max(0, 1-2*a.GibberishRatio) +
		0.3*math.Min(1, a.TokenDensity*10)

	switch {
	case n < MinLength:
		a.Reason = "too short"
	case a.GibberishRatio > MaxGibberishRatio:
		a.Reason = "too much gibberish"
	case a.AvgTokenLength < MinAvgTokenLength || a.AvgTokenLength > MaxAvgTokenLength:
		a.Reason = "abnormal token length"
	case a.TokenDensity < MinTokenDensity:
		a.Reason = "token density too low"
	case cjk > 0 && a.CJKRatio < MinCJKRatio:
		a.Reason = "cjk ratio too low"
	default:
		a.HighQuality = true
	}
	return a
}

// IsHighQuality is a shorthand for Evaluate(text).HighQuality.
func IsHighQuality(text string) bool {
	return Evaluate(text).HighQuality
}

// Score is a shorthand for Evaluate(text).Score.
func Score(text string) float64 {
	return Evaluate(text).Score
}

// isCJK matches the CJK unified ideographs block.
func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FA5
}
