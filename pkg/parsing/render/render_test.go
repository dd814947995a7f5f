package render_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/render"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// fakePdftoppm writes a png at the output prefix unless the page is listed
// in fail.
type fakePdftoppm struct {
	t     *testing.T
	png   []byte
	fail  map[string]bool
	mu    sync.Mutex
	calls [][]string
}

func (f *fakePdftoppm) run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	page := args[1]
	if f.fail[page] {
		return errors.New("poppler exploded")
	}
	prefix := args[len(args)-1]
	return os.WriteFile(prefix+".png", f.png, 0o644)
}

func counter(n int) func(string) (int, error) {
	return func(string) (int, error) { return n, nil }
}

func TestRenderPDFPages(t *testing.T) {
	fake := &fakePdftoppm{t: t, png: pngBytes(t, 40, 60)}
	r := render.New(
		render.WithRunner(fake.run),
		render.WithPageCounter(counter(3)),
		render.WithDPI(150),
		render.WithBinary("/opt/poppler/pdftoppm"),
	)

	pages, err := r.Render(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	for i, p := range pages {
		if p.PageNo != i+1 {
			t.Fatalf("page %d numbered %d", i, p.PageNo)
		}
		if p.MimeType != "image/png" || p.Width != 40 || p.Height != 60 {
			t.Fatalf("page %d = %s %dx%d", p.PageNo, p.MimeType, p.Width, p.Height)
		}
	}
	call := fake.calls[0]
	if call[0] != "/opt/poppler/pdftoppm" {
		t.Fatalf("binary = %q", call[0])
	}
	if got := call[7]; got != "150" {
		t.Fatalf("dpi arg = %q", got)
	}
}

func TestRenderOmitsFailedPages(t *testing.T) {
	fake := &fakePdftoppm{t: t, png: pngBytes(t, 10, 10), fail: map[string]bool{"2": true}}
	r := render.New(render.WithRunner(fake.run), render.WithPageCounter(counter(3)))

	pages, err := r.Render(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(pages) != 2 || pages[0].PageNo != 1 || pages[1].PageNo != 3 {
		t.Fatalf("pages = %+v", pages)
	}
}

func TestRenderAllPagesFailing(t *testing.T) {
	fake := &fakePdftoppm{t: t, fail: map[string]bool{"1": true, "2": true}}
	r := render.New(render.WithRunner(fake.run), render.WithPageCounter(counter(2)))

	_, err := r.Render(context.Background(), "scan.pdf")
	if !errx.HasCode(err, render.ErrRasterize) {
		t.Fatalf("err = %v, want rasterize", err)
	}
}

func TestRenderZeroPages(t *testing.T) {
	r := render.New(render.WithPageCounter(counter(0)))
	_, err := r.Render(context.Background(), "empty.pdf")
	if !errx.HasCode(err, render.ErrPageCount) {
		t.Fatalf("err = %v, want page count", err)
	}
}

func TestRenderImagePassesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.png")
	if err := os.WriteFile(path, pngBytes(t, 12, 7), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := render.New().Render(context.Background(), path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(pages) != 1 || pages[0].PageNo != 1 || pages[0].Width != 12 || pages[0].Height != 7 {
		t.Fatalf("pages = %+v", pages)
	}
}

func TestRenderRejectsCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	_ = os.WriteFile(path, []byte("definitely not a jpeg"), 0o644)

	_, err := render.New().Render(context.Background(), path)
	if !errx.HasCode(err, render.ErrDecode) {
		t.Fatalf("err = %v, want decode", err)
	}
}

func TestRenderUnsupported(t *testing.T) {
	_, err := render.New().Render(context.Background(), "memo.docx")
	if !errx.HasCode(err, render.ErrUnsupported) {
		t.Fatalf("err = %v, want unsupported", err)
	}
	if render.Supports("memo.docx") || !render.Supports("a.pdf") || !render.Supports("b.tif") {
		t.Fatal("Supports misclassified formats")
	}
}
