package ocr

import (
	"maps"
	"strings"
)

// Element types produced by providers. Matching is case-insensitive.
const (
	TypeTitle    = "title"
	TypeHeading  = "heading"
	TypeHeader   = "header"
	TypeSubtitle = "subtitle"
	TypeText     = "text"
	TypeTable    = "table"
	TypeList     = "list"
	TypeCode     = "code"
	TypeFormula  = "formula"
	TypeImage    = "image"
	TypeCaption  = "caption"
	TypeFootnote = "footnote"
	TypeQuote    = "quote"
)

// Document is the structured OCR output for a whole source document.
type Document struct {
	Pages            []Page         `json:"pages"`
	ModelInfo        string         `json:"model_info,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Page is one recognised page. PageNo is 1-based.
type Page struct {
	PageNo    int             `json:"page_no"`
	ImageSize []int           `json:"image_size,omitempty"`
	Layout    []LayoutElement `json:"layout"`
}

// LayoutElement is a single region of a page in reading order.
type LayoutElement struct {
	ElementID    string         `json:"element_id,omitempty"`
	ParentID     string         `json:"parent_id,omitempty"`
	Type         string         `json:"type"`
	HeadingLevel *int           `json:"heading_level,omitempty"`
	BBox         []float64      `json:"bbox,omitempty"`
	Text         string         `json:"text,omitempty"`
	MdText       string         `json:"md_text,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	TableInfo    *TableInfo     `json:"table_info,omitempty"`
}

// TableInfo carries the parsed structure of a table element.
type TableInfo struct {
	Title       string     `json:"title,omitempty"`
	Caption     string     `json:"caption,omitempty"`
	Headers     []string   `json:"headers,omitempty"`
	RowCount    int        `json:"row_count,omitempty"`
	ColumnCount int        `json:"column_count,omitempty"`
	Rows        [][]string `json:"rows,omitempty"`
	Summary     string     `json:"summary,omitempty"`
}

// BestText prefers the markdown rendition over the raw text.
func (e LayoutElement) BestText() string {
	if e.MdText != "" {
		return e.MdText
	}
	return e.Text
}

func (e LayoutElement) IsTitle() bool {
	switch strings.ToLower(e.Type) {
	case TypeTitle, TypeHeading, TypeHeader:
		return true
	}
	return false
}

func (e LayoutElement) IsTable() bool {
	return strings.EqualFold(e.Type, TypeTable)
}

// EffectiveHeadingLevel defaults to 1 when the provider gave no level.
func (e LayoutElement) EffectiveHeadingLevel() int {
	if e.HeadingLevel != nil && *e.HeadingLevel > 0 {
		return *e.HeadingLevel
	}
	return 1
}

// ConfidenceOr returns the element confidence or def when absent.
func (e LayoutElement) ConfidenceOr(def float64) float64 {
	if e.Confidence == nil {
		return def
	}
	return *e.Confidence
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional fields.
func Int(v int) *int { return &v }

// AverageConfidence averages elements that carry a confidence; 0 when none do.
func (p Page) AverageConfidence() float64 {
	var sum float64
	var n int
	for _, e := range p.Layout {
		if e.Confidence != nil {
			sum += *e.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Height returns the page height from ImageSize, or 0 when unknown.
func (p Page) Height() float64 {
	if len(p.ImageSize) < 2 {
		return 0
	}
	return float64(p.ImageSize[1])
}

func (d *Document) ElementCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Layout)
	}
	return n
}

func (d *Document) TableCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, e := range p.Layout {
			if e.IsTable() {
				n++
			}
		}
	}
	return n
}

// AverageConfidence averages every element confidence across pages.
func (d *Document) AverageConfidence() float64 {
	var sum float64
	var n int
	for _, p := range d.Pages {
		for _, e := range p.Layout {
			if e.Confidence != nil {
				sum += *e.Confidence
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// PlainText joins the best text of every element, one per line.
func (d *Document) PlainText() string {
	var b strings.Builder
	for _, p := range d.Pages {
		for _, e := range p.Layout {
			if t := e.BestText(); t != "" {
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// PageNumbers lists page numbers in document order.
func (d *Document) PageNumbers() []int {
	out := make([]int, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.PageNo
	}
	return out
}

// Clone returns a deep copy so callers can mutate pages without touching
// cached state.
func (p Page) Clone() Page {
	out := Page{PageNo: p.PageNo}
	if p.ImageSize != nil {
		out.ImageSize = append([]int(nil), p.ImageSize...)
	}
	out.Layout = make([]LayoutElement, len(p.Layout))
	for i, e := range p.Layout {
		out.Layout[i] = e.clone()
	}
	return out
}

func (e LayoutElement) clone() LayoutElement {
	c := e
	if e.HeadingLevel != nil {
		c.HeadingLevel = Int(*e.HeadingLevel)
	}
	if e.Confidence != nil {
		c.Confidence = Float(*e.Confidence)
	}
	if e.BBox != nil {
		c.BBox = append([]float64(nil), e.BBox...)
	}
	c.Attributes = maps.Clone(e.Attributes)
	if e.TableInfo != nil {
		ti := *e.TableInfo
		ti.Headers = append([]string(nil), e.TableInfo.Headers...)
		ti.Rows = make([][]string, len(e.TableInfo.Rows))
		for i, r := range e.TableInfo.Rows {
			ti.Rows[i] = append([]string(nil), r...)
		}
		c.TableInfo = &ti
	}
	return c
}
