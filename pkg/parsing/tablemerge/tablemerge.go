// Package tablemerge splices tables that continue across a page break.
package tablemerge

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
)

// defaultHeight is assumed for pages without an image size.
const defaultHeight = 1000.0

var separatorLine = regexp.MustCompile(`^\|[-:|\s]+\|$`)

type Config struct {
	Enabled          bool
	HeaderSimilarity float64
	BottomRatio      float64
	TopRatio         float64
}

func DefaultConfig() Config {
	return Config{Enabled: true, HeaderSimilarity: 0.7, BottomRatio: 0.85, TopRatio: 0.15}
}

type Merger struct {
	cfg Config
}

func New(cfg Config) *Merger {
	return &Merger{cfg: cfg}
}

// Merge records one splice.
type Merge struct {
	FromPage   int     `json:"from_page"`
	ToPage     int     `json:"to_page"`
	ElementID  string  `json:"element_id"`
	Similarity float64 `json:"similarity"`
	RowsAdded  int     `json:"rows_added"`
}

type Report struct {
	Merges []Merge `json:"merges"`
}

func (r Report) Count() int { return len(r.Merges) }

// Merge joins a table ending at the bottom of page i with a table starting
// at the top of page i+1 when their header rows are similar enough. The
// continuation's data rows are appended to the first table and the
// continuation element is removed. doc is modified in place.
func (m *Merger) Merge(doc *ocr.Document) Report {
	var rep Report
	if !m.cfg.Enabled || doc == nil || len(doc.Pages) < 2 {
		return rep
	}

	for i := 0; i < len(doc.Pages)-1; i++ {
		cur, next := &doc.Pages[i], &doc.Pages[i+1]

		bi := m.bottomTable(*cur)
		if bi < 0 {
			continue
		}
		ti := m.topTable(*next)
		if ti < 0 {
			continue
		}
		bottom, top := &cur.Layout[bi], next.Layout[ti]

		h1, ok1 := headerRow(bottom.MdText)
		h2, ok2 := headerRow(top.MdText)
		if !ok1 || !ok2 {
			continue
		}
		sim := jaccard(headerCells(h1), headerCells(h2))
		if sim < m.cfg.HeaderSimilarity {
			continue
		}

		added := splice(bottom, top)
		next.Layout = slices.Delete(next.Layout, ti, ti+1)
		rep.Merges = append(rep.Merges, Merge{
			FromPage:   cur.PageNo,
			ToPage:     next.PageNo,
			ElementID:  bottom.ElementID,
			Similarity: sim,
			RowsAdded:  added,
		})
		logx.WithFields(logx.Fields{
			"page":       cur.PageNo,
			"next_page":  next.PageNo,
			"similarity": sim,
			"rows":       added,
		}).Debug("merged cross-page table")

		// The next page served as a continuation; it does not start another.
		i++
	}
	return rep
}

func pageHeight(p ocr.Page) float64 {
	if h := p.Height(); h > 0 {
		return h
	}
	return defaultHeight
}

func hasBBox(e ocr.LayoutElement) bool { return len(e.BBox) >= 4 }

// bottomTable returns the index of the last table reaching into the bottom
// band of p, or -1.
func (m *Merger) bottomTable(p ocr.Page) int {
	threshold := pageHeight(p) * m.cfg.BottomRatio
	for i := len(p.Layout) - 1; i >= 0; i-- {
		e := p.Layout[i]
		if !e.IsTable() {
			continue
		}
		if !hasBBox(e) {
			if i == len(p.Layout)-1 {
				return i
			}
			continue
		}
		if e.BBox[1]+e.BBox[3] >= threshold {
			return i
		}
	}
	return -1
}

// topTable returns the index of the first table starting in the top band
// of p, or -1.
func (m *Merger) topTable(p ocr.Page) int {
	threshold := pageHeight(p) * m.cfg.TopRatio
	for i, e := range p.Layout {
		if !e.IsTable() {
			continue
		}
		if !hasBBox(e) {
			if i == 0 {
				return i
			}
			continue
		}
		if e.BBox[1] <= threshold {
			return i
		}
	}
	return -1
}

func headerRow(md string) (string, bool) {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && !separatorLine.MatchString(line) {
			return line, true
		}
	}
	return "", false
}

func headerCells(row string) []string {
	var out []string
	for _, c := range strings.Split(row, "|") {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func jaccard(a, b []string) float64 {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	inter := 0
	for _, s := range a {
		if inB[s] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// dataRows returns the pipe rows of md after its header and separator.
func dataRows(md string) []string {
	var out []string
	headerSeen, sepSeen := false, false
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		isSep := separatorLine.MatchString(trimmed)
		if !headerSeen && strings.HasPrefix(trimmed, "|") && !isSep {
			headerSeen = true
			continue
		}
		if !sepSeen && isSep {
			sepSeen = true
			continue
		}
		out = append(out, line)
	}
	return out
}

func splice(dst *ocr.LayoutElement, src ocr.LayoutElement) int {
	rows := dataRows(src.MdText)
	if len(rows) > 0 {
		dst.MdText = strings.TrimRight(dst.MdText, "\n") + "\n" + strings.Join(rows, "\n")
	}
	if src.Text != "" {
		if dst.Text == "" {
			dst.Text = src.Text
		} else {
			dst.Text += "\n" + src.Text
		}
	}

	switch {
	case dst.Confidence != nil && src.Confidence != nil:
		dst.Confidence = ocr.Float(max(*dst.Confidence, *src.Confidence))
	case src.Confidence != nil:
		dst.Confidence = ocr.Float(*src.Confidence)
	}

	if dst.TableInfo != nil {
		var extra [][]string
		if src.TableInfo != nil && len(src.TableInfo.Rows) > 0 {
			extra = src.TableInfo.Rows
		} else {
			for _, r := range rows {
				extra = append(extra, rowCells(r))
			}
		}
		dst.TableInfo.Rows = append(dst.TableInfo.Rows, extra...)
		dst.TableInfo.RowCount = len(dst.TableInfo.Rows)
	}
	return len(rows)
}

func rowCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
