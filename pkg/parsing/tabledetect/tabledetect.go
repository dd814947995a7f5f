// Package tabledetect scores extracted text for signs of tabular layout.
package tabledetect

import (
	"math"
	"regexp"
	"strings"
)

var (
	multiSpace   = regexp.MustCompile(` {3,}`)
	numberColumn = regexp.MustCompile(`\d+\.?\d*\s{2,}\d+\.?\d*`)
	headerWords  = regexp.MustCompile(`(?i)(序号|编号|名称|数量|金额|日期|时间|姓名|部门|合计|总计|小计|No\.|ID|Name|Date|Amount|Total|Qty)`)
)

// PageSignals are the raw counts and the verdict for one page.
type PageSignals struct {
	PageNo      int      `json:"page_no"`
	HasTable    bool     `json:"has_table"`
	Indicators  int      `json:"indicators"`
	Tabs        int      `json:"tabs"`
	SpaceRuns   int      `json:"space_runs"`
	NumberCols  int      `json:"number_columns"`
	HeaderHits  int      `json:"header_hits"`
	AlignedRows int      `json:"aligned_rows"`
	Reasons     []string `json:"reasons,omitempty"`
}

// Result is the document-level verdict.
type Result struct {
	PageCount    int           `json:"page_count"`
	HasTable     bool          `json:"has_table"`
	Score        float64       `json:"score"`
	RecommendOCR bool          `json:"recommend_ocr"`
	Pages        []PageSignals `json:"pages"`
}

// TablePages lists the pages flagged as containing a table.
func (r Result) TablePages() []int {
	var out []int
	for _, p := range r.Pages {
		if p.HasTable {
			out = append(out, p.PageNo)
		}
	}
	return out
}

// Detect analyses per-page text. Page numbers are 1-based in input order.
func Detect(pages []string) Result {
	res := Result{PageCount: len(pages), Pages: make([]PageSignals, len(pages))}
	if len(pages) == 0 {
		return res
	}

	total, withTable := 0, 0
	for i, text := range pages {
		ps := AnalyzePage(text)
		ps.PageNo = i + 1
		res.Pages[i] = ps
		total += ps.Indicators
		if ps.HasTable {
			withTable++
			res.HasTable = true
		}
	}

	res.Score = 0.6*math.Min(1, float64(total)/50) + 0.4*float64(withTable)/float64(len(pages))
	res.HasTable = res.HasTable || res.Score > 0.5
	res.RecommendOCR = res.HasTable
	return res
}

// AnalyzePage computes the weighted table indicators of one page of text.
func AnalyzePage(text string) PageSignals {
	ps := PageSignals{
		Tabs:        strings.Count(text, "\t"),
		SpaceRuns:   len(multiSpace.FindAllStringIndex(text, -1)),
		NumberCols:  len(numberColumn.FindAllStringIndex(text, -1)),
		HeaderHits:  len(headerWords.FindAllStringIndex(text, -1)),
		AlignedRows: alignedRows(text),
	}

	if ps.Tabs > 2 {
		ps.Indicators += ps.Tabs
		ps.Reasons = append(ps.Reasons, "tabs")
	}
	if ps.SpaceRuns > 5 {
		ps.Indicators += ps.SpaceRuns / 2
		ps.Reasons = append(ps.Reasons, "space alignment")
	}
	if ps.NumberCols > 2 {
		ps.Indicators += ps.NumberCols * 2
		ps.Reasons = append(ps.Reasons, "numeric columns")
	}
	if ps.HeaderHits > 2 {
		ps.Indicators += ps.HeaderHits * 3
		ps.Reasons = append(ps.Reasons, "header keywords")
	}
	if ps.AlignedRows > 3 {
		ps.Indicators += ps.AlignedRows * 2
		ps.Reasons = append(ps.Reasons, "aligned rows")
	}

	ps.HasTable = ps.Indicators > 10 ||
		(ps.HeaderHits >= 2 && (ps.SpaceRuns > 3 || ps.AlignedRows > 2))
	return ps
}

// alignedRows buckets word-boundary spaces into 5-column slots and returns
// the highest number of lines sharing one slot, counting only slots shared
// by at least three lines.
func alignedRows(text string) int {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return 0
	}

	slots := make(map[int]int)
	for _, line := range lines {
		rs := []rune(line)
		if len(rs) < 10 {
			continue
		}
		seen := make(map[int]bool)
		for i := 1; i < len(rs)-1; i++ {
			if rs[i] != ' ' {
				continue
			}
			if rs[i-1] != ' ' || rs[i+1] != ' ' {
				seen[i/5*5] = true
			}
		}
		for slot := range seen {
			slots[slot]++
		}
	}

	best := 0
	for _, n := range slots {
		if n >= 3 && n > best {
			best = n
		}
	}
	return best
}
