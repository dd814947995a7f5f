// Package render turns a document into page images for OCR. PDFs are
// rasterised one page at a time with poppler's pdftoppm; image files pass
// through as a single page.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Abraxas-365/hybridparse/pkg/asyncx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/extract"
)

// PageImage is one rendered page. PageNo is 1-based.
type PageImage struct {
	PageNo   int
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

func (p PageImage) Size() int { return len(p.Data) }

type Renderer interface {
	Render(ctx context.Context, path string) ([]PageImage, error)
}

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command and folds stderr into the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

type Option func(*PageRenderer)

func WithBinary(path string) Option { return func(r *PageRenderer) { r.binary = path } }

func WithDPI(dpi int) Option {
	return func(r *PageRenderer) {
		if dpi > 0 {
			r.dpi = dpi
		}
	}
}

func WithParallelism(n int) Option {
	return func(r *PageRenderer) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

func WithRunner(run Runner) Option { return func(r *PageRenderer) { r.run = run } }

// WithPageCounter replaces the PDF page counter.
func WithPageCounter(fn func(path string) (int, error)) Option {
	return func(r *PageRenderer) { r.pageCount = fn }
}

// PageRenderer is the default Renderer.
type PageRenderer struct {
	binary      string
	dpi         int
	parallelism int
	run         Runner
	pageCount   func(path string) (int, error)
}

var _ Renderer = (*PageRenderer)(nil)

func New(opts ...Option) *PageRenderer {
	r := &PageRenderer{
		binary:      "pdftoppm",
		dpi:         300,
		parallelism: 4,
		run:         ExecRunner,
		pageCount:   extract.PDFPageCount,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether path can be rendered to page images.
func Supports(path string) bool {
	switch extract.Detect(path) {
	case extract.FormatPDF, extract.FormatImage:
		return true
	}
	return false
}

func (r *PageRenderer) Render(ctx context.Context, path string) ([]PageImage, error) {
	switch extract.Detect(path) {
	case extract.FormatImage:
		img, err := loadImage(path, 1)
		if err != nil {
			return nil, err
		}
		return []PageImage{img}, nil
	case extract.FormatPDF:
		return r.renderPDF(ctx, path)
	default:
		return nil, ErrRegistry.New(ErrUnsupported).WithDetail("path", path)
	}
}

func (r *PageRenderer) renderPDF(ctx context.Context, path string) ([]PageImage, error) {
	total, err := r.pageCount(path)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(ErrPageCount, err).WithDetail("path", path)
	}
	if total <= 0 {
		return nil, ErrRegistry.NewWithMessage(ErrPageCount, "document has no pages").WithDetail("path", path)
	}

	dir, err := os.MkdirTemp("", "hybridparse-render-*")
	if err != nil {
		return nil, ErrRegistry.NewWithCause(ErrRasterize, err)
	}
	defer os.RemoveAll(dir)

	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}

	results := asyncx.Settle(ctx, r.parallelism, pages, func(ctx context.Context, pageNo int) (PageImage, error) {
		return r.renderPage(ctx, path, dir, pageNo)
	})

	out := make([]PageImage, 0, total)
	var lastErr error
	for i, res := range results {
		if !res.OK() {
			lastErr = res.Err
			logx.WithError(res.Err).
				WithFields(logx.Fields{"path": path, "page": pages[i]}).
				Warn("page rasterisation failed")
			continue
		}
		out = append(out, res.Value)
	}
	if len(out) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrRegistry.NewWithCause(ErrRasterize, lastErr).
			WithDetail("path", path).
			WithDetail("pages", total)
	}
	return out, nil
}

func (r *PageRenderer) renderPage(ctx context.Context, path, dir string, pageNo int) (PageImage, error) {
	n := strconv.Itoa(pageNo)
	prefix := filepath.Join(dir, "page-"+n)
	err := r.run(ctx, r.binary,
		"-f", n,
		"-l", n,
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		path,
		prefix,
	)
	if err != nil {
		return PageImage{}, err
	}
	defer os.Remove(prefix + ".png")
	return loadImage(prefix+".png", pageNo)
}

func loadImage(path string, pageNo int) (PageImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PageImage{}, ErrRegistry.NewWithCause(ErrRead, err).WithDetail("path", path)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return PageImage{}, ErrRegistry.NewWithCause(ErrDecode, err).WithDetail("path", path)
	}
	return PageImage{
		PageNo:   pageNo,
		Data:     data,
		MimeType: "image/" + format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
