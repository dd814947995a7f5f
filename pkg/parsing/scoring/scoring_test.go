package scoring_test

import (
	"math"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/scoring"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCharacterAccuracy(t *testing.T) {
	tests := []struct {
		name        string
		pred, truth string
		want        float64
	}{
		{"identical", "hello world", "hello world", 1},
		{"both empty", "", "", 1},
		{"empty prediction", "", "abc", 0},
		{"empty truth", "abc", "", 0},
		{"one substitution", "kitten", "sitten", 1 - 1.0/6},
		{"runes not bytes", "数据表", "数据库", 1 - 1.0/3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoring.CharacterAccuracy(tt.pred, tt.truth); !approx(got, tt.want) {
				t.Fatalf("CharacterAccuracy(%q, %q) = %v, want %v", tt.pred, tt.truth, got, tt.want)
			}
		})
	}
}

func TestWordAccuracyNormalises(t *testing.T) {
	if got := scoring.WordAccuracy("Hello   WORLD", "hello world"); got != 1 {
		t.Fatalf("case and spacing should not matter, got %v", got)
	}
	// Fullwidth letters fold to ASCII under NFKC.
	if got := scoring.WordAccuracy("ＡＢＣ def", "abc def"); got != 1 {
		t.Fatalf("NFKC folding failed, got %v", got)
	}
	if got := scoring.WordAccuracy("one two three four", "one two six four"); !approx(got, 0.75) {
		t.Fatalf("one wrong word of four = %v", got)
	}
}

const table = `| Name | Qty |
|---|---|
| apple | 3 |
| pear | 5 |`

func TestTEDSIdentity(t *testing.T) {
	if got := scoring.TEDS(table, table); got != 1 {
		t.Fatalf("TEDS(t, t) = %v", got)
	}
	if got := scoring.TEDS("", ""); got != 1 {
		t.Fatalf("TEDS of empties = %v", got)
	}
	if got := scoring.TEDS("", table); got != 0 {
		t.Fatalf("TEDS with empty prediction = %v", got)
	}
}

func TestTEDSIgnoresBoldAndCase(t *testing.T) {
	bold := "| **Name** | QTY |\n|---|---|\n| Apple | 3 |\n| pear | 5 |"
	if got := scoring.TEDS(bold, table); got != 1 {
		t.Fatalf("TEDS = %v, want 1", got)
	}
}

func TestTEDSMissingRow(t *testing.T) {
	short := "| Name | Qty |\n|---|---|\n| apple | 3 |"
	// nodes: truth 1+3*3=10, one row deletion
	if got := scoring.TEDS(short, table); !approx(got, 0.9) {
		t.Fatalf("TEDS = %v, want 0.9", got)
	}
}

func TestEvaluateWeights(t *testing.T) {
	e := scoring.Evaluate("abc", "abc", "", "")
	if e.HasTables || e.TEDS != 0 || !approx(e.Overall, 0.7) {
		t.Fatalf("text only evaluation = %+v", e)
	}
	e = scoring.Evaluate("abc", "abc", table, "")
	if e.HasTables || !approx(e.Overall, 0.7) {
		t.Fatalf("one-sided table evaluation = %+v", e)
	}
	e = scoring.Evaluate("abc", "abc", table, "| x |\n|---|\n| y |")
	if !e.HasTables || e.TEDS >= 1 || e.Overall >= 1 {
		t.Fatalf("table evaluation = %+v", e)
	}
	if !approx(e.Overall, 0.7+0.3*e.TEDS) {
		t.Fatalf("overall = %v", e.Overall)
	}
}

func TestCompression(t *testing.T) {
	original := "The quarterly revenue report shows revenue growth across every region this year"
	c := scoring.CompressionOf(original, "quarterly revenue growth")
	if c.OriginalTokens <= c.CompressedTokens {
		t.Fatalf("tokens = %+v", c)
	}
	if c.Ratio <= 1 {
		t.Fatalf("ratio = %v", c.Ratio)
	}
	if c.Retention <= 0 || c.Retention >= 1 {
		t.Fatalf("retention = %v", c.Retention)
	}
	if !approx(c.Effective, c.Ratio*c.Retention) {
		t.Fatalf("effective = %v", c.Effective)
	}

	if got := scoring.EstimateTokens("数据数据数据"); got != 4 {
		t.Fatalf("han tokens = %d, want 4", got)
	}
	if got := scoring.EstimateTokens("abcdefgh"); got != 2 {
		t.Fatalf("latin tokens = %d, want 2", got)
	}
}

func TestDocumentQuality(t *testing.T) {
	doc := &ocr.Document{Pages: []ocr.Page{
		{PageNo: 1, Layout: []ocr.LayoutElement{{Type: "text", Text: "a", Confidence: ocr.Float(0.8)}}},
		{PageNo: 2},
	}}
	if got := scoring.DocumentQuality(doc); !approx(got, 0.3*0.5+0.7*0.8) {
		t.Fatalf("DocumentQuality = %v", got)
	}
	if got := scoring.DocumentQuality(&ocr.Document{}); got != 0 {
		t.Fatalf("empty document quality = %v", got)
	}
}

func TestScoreRecommendations(t *testing.T) {
	var layout []ocr.LayoutElement
	for range 12 {
		layout = append(layout, ocr.LayoutElement{Type: "text", Text: "line", Confidence: ocr.Float(0.5)})
	}
	doc := &ocr.Document{Pages: []ocr.Page{{PageNo: 1, Layout: layout}}}

	r := scoring.New().Score(doc, "", doc.PlainText())
	if r.Structure.Texts != 12 || r.Structure.LowConfidence != 12 {
		t.Fatalf("structure = %+v", r.Structure)
	}
	if len(r.Recommendations) != 2 {
		t.Fatalf("recommendations = %v", r.Recommendations)
	}

	r = scoring.New().Compare(r, "abc", "xyz", "", "")
	if r.Evaluation == nil || len(r.Recommendations) != 3 {
		t.Fatalf("compare = %+v", r)
	}
}
