package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Abraxas-365/hybridparse/pkg/logx"
)

// PDFPageCount reads the page count from the PDF structure.
func PDFPageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, ErrRegistry.NewWithCause(ErrMalformed, err).WithDetail("path", path)
	}
	return n, nil
}

// extractPDF reads per-page plain text with ledongthuc/pdf and falls back
// to pdfcpu content streams when that reader fails on the file.
func extractPDF(ctx context.Context, path string) (Result, error) {
	pages, err := plainTextPages(ctx, path)
	extractor := "ledongthuc/pdf"
	if err != nil {
		logx.WithError(err).WithField("path", path).Debug("plain text reader failed, falling back to content streams")
		pages, err = contentStreamPages(ctx, path)
		extractor = "pdfcpu"
	}
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:     joinPages(pages),
		Pages:    pages,
		Title:    firstLine(pages),
		Metadata: map[string]any{"extractor": extractor},
	}, nil
}

func plainTextPages(ctx context.Context, path string) (pages []string, err error) {
	defer func() {
		// The reader panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(ErrMalformed, err).WithDetail("path", path)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

func contentStreamPages(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(ErrRead, err).WithDetail("path", path)
	}
	defer f.Close()

	pc, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, ErrRegistry.NewWithCause(ErrMalformed, err).WithDetail("path", path)
	}

	pages := make([]string, pc.PageCount)
	for i := 1; i <= pc.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pc, i)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		pages[i-1] = textFromContentStream(data)
	}
	return pages, nil
}

var stringLiteral = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textFromContentStream collects string operands of text-showing operators.
func textFromContentStream(data []byte) string {
	var b strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range stringLiteral.FindAllSubmatch(line, -1) {
				b.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			b.WriteByte('\n')
			for _, m := range stringLiteral.FindAllSubmatch(line, -1) {
				b.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			b.WriteByte(' ')
		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}

func unescapePDFString(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := 0
			for j := 0; j < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7'; j++ {
				v = v*8 + int(raw[i]-'0')
				i++
			}
			i--
			b.WriteByte(byte(v))
		default:
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

func firstLine(pages []string) string {
	for _, p := range pages {
		for _, line := range strings.Split(p, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				if r := []rune(line); len(r) > 200 {
					line = string(r[:200])
				}
				return line
			}
		}
	}
	return ""
}
