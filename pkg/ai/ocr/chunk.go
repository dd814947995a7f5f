package ocr

import (
	"math"
	"strings"
	"unicode/utf8"
)

// ChunkableUnit is one element prepared for downstream chunking, with the
// heading path that encloses it.
type ChunkableUnit struct {
	ElementID        string     `json:"element_id,omitempty"`
	Type             string     `json:"type"`
	Content          string     `json:"content"`
	PageNo           int        `json:"page_no"`
	HeadingLevel     int        `json:"heading_level,omitempty"`
	SemanticBoundary bool       `json:"semantic_boundary"`
	SectionPath      []string   `json:"section_path,omitempty"`
	TableInfo        *TableInfo `json:"table_info,omitempty"`
}

// Section joins the section path with " > ".
func (u ChunkableUnit) Section() string {
	return strings.Join(u.SectionPath, " > ")
}

// EstimateTokens approximates three characters per token.
func (u ChunkableUnit) EstimateTokens() int {
	return int(math.Ceil(float64(utf8.RuneCountInString(u.Content)) / 3.0))
}

// ChunkableUnits walks the document in reading order. Titles, tables, code
// and formulas are semantic boundaries; each title replaces the section
// path entries at its level and below.
func (d *Document) ChunkableUnits() []ChunkableUnit {
	var (
		units []ChunkableUnit
		path  []string
	)
	for _, p := range d.Pages {
		for _, e := range p.Layout {
			content := e.BestText()
			if content != "" {
				u := ChunkableUnit{
					ElementID:   e.ElementID,
					Type:        e.Type,
					Content:     content,
					PageNo:      p.PageNo,
					SectionPath: append([]string(nil), path...),
				}
				switch {
				case e.IsTitle():
					u.HeadingLevel = e.EffectiveHeadingLevel()
					u.SemanticBoundary = true
				case e.IsTable():
					u.TableInfo = e.TableInfo
					u.SemanticBoundary = true
				case strings.EqualFold(e.Type, TypeCode), strings.EqualFold(e.Type, TypeFormula):
					u.SemanticBoundary = true
				}
				units = append(units, u)
			}
			if e.IsTitle() {
				level := e.EffectiveHeadingLevel()
				for len(path) > 0 && len(path) >= level {
					path = path[:len(path)-1]
				}
				path = append(path, e.BestText())
			}
		}
	}
	return units
}

// ChunkingStrategy names the recommended splitting approach.
type ChunkingStrategy string

const (
	ChunkFixedSize          ChunkingStrategy = "FIXED_SIZE"
	ChunkRecursiveCharacter ChunkingStrategy = "RECURSIVE_CHARACTER"
	ChunkSemantic           ChunkingStrategy = "SEMANTIC"
	ChunkHybrid             ChunkingStrategy = "HYBRID"
)

type ChunkingRecommendation struct {
	Strategy  ChunkingStrategy `json:"strategy"`
	ChunkSize int              `json:"chunk_size"`
	Overlap   int              `json:"overlap"`
	Reason    string           `json:"reason"`
}

// RecommendChunking picks a strategy from the unit mix.
func RecommendChunking(units []ChunkableUnit) ChunkingRecommendation {
	var tokens, tables, titles, boundaries int
	for _, u := range units {
		tokens += u.EstimateTokens()
		if u.TableInfo != nil || strings.EqualFold(u.Type, TypeTable) {
			tables++
		}
		if u.HeadingLevel > 0 {
			titles++
		}
		if u.SemanticBoundary {
			boundaries++
		}
	}

	rec := ChunkingRecommendation{Overlap: 200}
	switch {
	case tables > 0:
		rec.Strategy, rec.Reason = ChunkHybrid, "document contains tables"
	case boundaries >= 10:
		rec.Strategy, rec.Reason = ChunkSemantic, "document has many semantic boundaries"
	case titles >= 5:
		rec.Strategy, rec.Reason = ChunkRecursiveCharacter, "document has a heading hierarchy"
	default:
		rec.Strategy, rec.Reason = ChunkFixedSize, "document structure is flat"
	}

	switch {
	case tokens < 1000:
		rec.ChunkSize = 256
	case tokens < 10000:
		rec.ChunkSize = 512
	default:
		rec.ChunkSize = 1024
	}
	return rec
}
