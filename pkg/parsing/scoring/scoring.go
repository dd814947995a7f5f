package scoring

import (
	"fmt"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
)

// Evaluation compares a parse with a reference transcription.
type Evaluation struct {
	CharacterAccuracy float64 `json:"character_accuracy"`
	WordAccuracy      float64 `json:"word_accuracy"`
	TEDS              float64 `json:"teds"`
	HasTables         bool    `json:"has_tables"`
	Overall           float64 `json:"overall"`
}

// Evaluate weights character, word and table accuracy 0.4/0.3/0.3. TEDS is 0
// unless both tables are supplied, so a text-only match tops out at 0.7.
func Evaluate(pred, truth, predTable, truthTable string) Evaluation {
	e := Evaluation{
		CharacterAccuracy: CharacterAccuracy(pred, truth),
		WordAccuracy:      WordAccuracy(pred, truth),
		HasTables:         predTable != "" && truthTable != "",
	}
	if e.HasTables {
		e.TEDS = TEDS(predTable, truthTable)
	}
	e.Overall = 0.4*e.CharacterAccuracy + 0.3*e.WordAccuracy + 0.3*e.TEDS
	return e
}

// DocumentQuality is 0.3*coverage + 0.7*mean element confidence, where
// coverage is the share of pages holding at least one element.
func DocumentQuality(doc *ocr.Document) float64 {
	if doc == nil || len(doc.Pages) == 0 {
		return 0
	}
	covered := 0
	for _, p := range doc.Pages {
		if len(p.Layout) > 0 {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(doc.Pages))
	return 0.3*coverage + 0.7*doc.AverageConfidence()
}

// Structure summarises element composition of a document.
type Structure struct {
	Pages          int     `json:"pages"`
	Elements       int     `json:"elements"`
	Titles         int     `json:"titles"`
	Texts          int     `json:"texts"`
	Tables         int     `json:"tables"`
	Images         int     `json:"images"`
	Others         int     `json:"others"`
	AvgConfidence  float64 `json:"average_confidence"`
	HighConfidence int     `json:"high_confidence"`
	MidConfidence  int     `json:"mid_confidence"`
	LowConfidence  int     `json:"low_confidence"`
	StructureScore float64 `json:"structure_score"`
	DiversityScore float64 `json:"diversity_score"`
}

func StructureOf(doc *ocr.Document) Structure {
	var s Structure
	if doc == nil {
		return s
	}
	s.Pages = len(doc.Pages)
	s.AvgConfidence = doc.AverageConfidence()
	for _, p := range doc.Pages {
		for _, e := range p.Layout {
			s.Elements++
			switch {
			case e.IsTitle():
				s.Titles++
			case e.IsTable():
				s.Tables++
			case strings.EqualFold(e.Type, ocr.TypeText):
				s.Texts++
			case strings.EqualFold(e.Type, ocr.TypeImage):
				s.Images++
			default:
				s.Others++
			}
			if e.Confidence == nil {
				continue
			}
			switch c := *e.Confidence; {
			case c >= 0.9:
				s.HighConfidence++
			case c >= 0.7:
				s.MidConfidence++
			default:
				s.LowConfidence++
			}
		}
	}

	types := 0
	for _, present := range []struct {
		n      int
		weight float64
	}{{s.Titles, 0.3}, {s.Texts, 0.4}, {s.Tables, 0.2}, {s.Images, 0.1}, {s.Others, 0}} {
		if present.n > 0 {
			s.StructureScore += present.weight
			types++
		}
	}
	s.StructureScore = min(1, s.StructureScore)
	s.DiversityScore = float64(types) / 5
	return s
}

// Report bundles the scores computed for a finished parse.
type Report struct {
	QualityScore    float64     `json:"quality_score"`
	Compression     Compression `json:"compression"`
	Structure       Structure   `json:"structure"`
	Evaluation      *Evaluation `json:"evaluation,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
}

// Scorer produces reports for parsed documents.
type Scorer struct{}

func New() *Scorer { return &Scorer{} }

// Score reports on doc. original is the directly extracted text of the
// source (may be empty) and rendered is the final markdown.
func (s *Scorer) Score(doc *ocr.Document, original, rendered string) Report {
	r := Report{
		QualityScore: DocumentQuality(doc),
		Compression:  CompressionOf(original, rendered),
		Structure:    StructureOf(doc),
	}
	r.Recommendations = Recommendations(nil, &r.Structure, &r.Compression)
	return r
}

// Compare adds a reference evaluation to a report.
func (s *Scorer) Compare(r Report, pred, truth, predTable, truthTable string) Report {
	e := Evaluate(pred, truth, predTable, truthTable)
	r.Evaluation = &e
	r.Recommendations = Recommendations(&e, &r.Structure, &r.Compression)
	return r
}

// Recommendations lists tuning hints for weak scores. Any argument may be nil.
func Recommendations(e *Evaluation, st *Structure, c *Compression) []string {
	var out []string
	if e != nil && e.CharacterAccuracy < 0.9 {
		out = append(out, fmt.Sprintf(
			"character accuracy %.0f%% is below 90%%: check image quality, raise render DPI or try another OCR model",
			e.CharacterAccuracy*100))
	}
	if st != nil && st.Elements > 0 {
		if st.AvgConfidence < 0.8 {
			out = append(out, fmt.Sprintf(
				"average confidence %.2f is below 0.80: raise the confidence threshold or check document clarity",
				st.AvgConfidence))
		}
		if st.Tables == 0 && st.Elements > 10 {
			out = append(out, "no tables detected: if the document has tables, review the OCR prompt or model")
		}
	}
	if c != nil && c.OriginalTokens > 0 {
		if c.Ratio < 2 {
			out = append(out, fmt.Sprintf("compression ratio %.2fx is low: the parsed output is close to the source size", c.Ratio))
		}
		if c.Retention < 0.8 {
			out = append(out, fmt.Sprintf("information retention %.0f%% is below 80%%: content may have been dropped", c.Retention*100))
		}
	}
	return out
}
