// Package parsing turns documents into structured text. A Parser picks
// between direct extraction and page-level OCR per document, runs OCR
// through the page scheduler, merges tables split across pages and scores
// the output.
package parsing

import (
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/scoring"
)

type Mode string

const (
	ModeSimple Mode = "SIMPLE"
	ModeOCR    Mode = "OCR"
	ModeAuto   Mode = "AUTO"
)

// ParseMode maps user input to a Mode. Unknown or empty values mean AUTO.
func ParseMode(s string) Mode {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeSimple:
		return ModeSimple
	case ModeOCR:
		return ModeOCR
	default:
		return ModeAuto
	}
}

// Parsing methods reported on Result.
const (
	MethodTextExtraction = "text_extraction"
	MethodOCR            = "ocr"
	MethodOCRCached      = "ocr_cached"
)

// Document types reported under the autoDetectedType metadata key.
const (
	DetectedScan     = "scan_document"
	DetectedComplex  = "complex_document"
	DetectedText     = "text_document"
	DetectedFallback = "fallback"
)

type Config struct {
	ForceOCR             bool
	EnableHybrid         bool
	ConfidenceThreshold  float64
	EnableTableMerge     bool
	EnableTableDetection bool
}

func DefaultConfig() Config {
	return Config{
		EnableHybrid:         true,
		EnableTableMerge:     true,
		EnableTableDetection: true,
	}
}

type Request struct {
	// Path is resolved against the Parser's file source.
	Path string `json:"path"`
	Mode Mode   `json:"mode"`
}

type Result struct {
	FinalText      string                      `json:"final_text"`
	Document       *ocr.Document               `json:"document,omitempty"`
	Metadata       map[string]any              `json:"metadata"`
	QualityScore   float64                     `json:"quality_score"`
	Method         string                      `json:"parsing_method"`
	ChunkableUnits []ocr.ChunkableUnit         `json:"chunkable_units,omitempty"`
	Chunking       *ocr.ChunkingRecommendation `json:"chunking,omitempty"`
	Report         *scoring.Report             `json:"report,omitempty"`
}

// Status returns the parsingStatus metadata, COMPLETE for extraction results.
func (r *Result) Status() string {
	if s, ok := r.Metadata["parsingStatus"].(string); ok {
		return s
	}
	return "COMPLETE"
}

func (r *Result) setMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}
