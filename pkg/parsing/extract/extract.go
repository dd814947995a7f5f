// Package extract pulls text directly out of documents without OCR:
// per-page text for PDF, paragraphs and tables for DOCX, markdown for HTML
// and the raw content of text files.
package extract

import (
	"context"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatHTML    Format = "html"
	FormatText    Format = "text"
	FormatImage   Format = "image"
	FormatUnknown Format = "unknown"
)

var formats = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".xhtml":    FormatHTML,
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatText,
	".markdown": FormatText,
	".csv":      FormatText,
	".tsv":      FormatText,
	".json":     FormatText,
	".xml":      FormatText,
	".png":      FormatImage,
	".jpg":      FormatImage,
	".jpeg":     FormatImage,
	".gif":      FormatImage,
	".bmp":      FormatImage,
	".tif":      FormatImage,
	".tiff":     FormatImage,
	".webp":     FormatImage,
}

// Detect classifies path by extension.
func Detect(path string) Format {
	if f, ok := formats[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return FormatUnknown
}

// Result of a direct extraction. Pages holds per-page text for paginated
// formats and the whole text as a single entry otherwise.
type Result struct {
	Text     string         `json:"text"`
	Pages    []string       `json:"pages"`
	Format   Format         `json:"format"`
	Title    string         `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (r Result) PageCount() int { return len(r.Pages) }

type Extractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// FileExtractor dispatches on the file extension.
type FileExtractor struct {
	html *htmlConverter
}

var _ Extractor = (*FileExtractor)(nil)

func New() *FileExtractor {
	return &FileExtractor{html: newHTMLConverter()}
}

func (x *FileExtractor) Extract(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	format := Detect(path)
	var (
		res Result
		err error
	)
	switch format {
	case FormatPDF:
		res, err = extractPDF(ctx, path)
	case FormatDOCX:
		res, err = extractDOCX(path)
	case FormatHTML:
		res, err = x.html.extract(path)
	case FormatText:
		res, err = extractText(path)
	default:
		return Result{}, ErrRegistry.New(ErrUnsupportedFormat).
			WithDetail("path", path).
			WithDetail("format", string(format))
	}
	if err != nil {
		return Result{}, err
	}

	res.Format = format
	if res.Metadata == nil {
		res.Metadata = make(map[string]any)
	}
	res.Metadata["format"] = string(format)
	res.Metadata["pageCount"] = len(res.Pages)
	if res.Title != "" {
		res.Metadata["title"] = res.Title
	}
	return res, nil
}

func joinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	return b.String()
}
