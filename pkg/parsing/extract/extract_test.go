package extract_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/extract"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDetect(t *testing.T) {
	cases := map[string]extract.Format{
		"a.PDF":        extract.FormatPDF,
		"b.docx":       extract.FormatDOCX,
		"c.htm":        extract.FormatHTML,
		"d.md":         extract.FormatText,
		"scan.TIFF":    extract.FormatImage,
		"photo.webp":   extract.FormatImage,
		"archive.zip":  extract.FormatUnknown,
		"no-extension": extract.FormatUnknown,
	}
	for path, want := range cases {
		if got := extract.Detect(path); got != want {
			t.Fatalf("Detect(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestExtractText(t *testing.T) {
	path := writeFile(t, "notes.txt", "line one\nline two\xff")

	res, err := extract.New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Text != "line one\nline two" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Format != extract.FormatText || res.PageCount() != 1 {
		t.Fatalf("format=%s pages=%d", res.Format, res.PageCount())
	}
	if res.Metadata["pageCount"] != 1 {
		t.Fatalf("metadata = %v", res.Metadata)
	}
}

func TestExtractHTMLKeepsTablesAndTitle(t *testing.T) {
	path := writeFile(t, "page.html", `<html><head><title>Quarterly Report</title></head>
<body>
<h1>Revenue</h1>
<script>alert("x")</script>
<table>
<tr><th>Region</th><th>Total</th></tr>
<tr><td>North</td><td>120</td></tr>
</table>
</body></html>`)

	res, err := extract.New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Title != "Quarterly Report" {
		t.Fatalf("title = %q", res.Title)
	}
	if strings.Contains(res.Text, "alert") {
		t.Fatalf("script survived sanitising: %q", res.Text)
	}
	for _, want := range []string{"Revenue", "Region", "North", "120", "|"} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("markdown missing %q:\n%s", want, res.Text)
		}
	}
}

func TestExtractDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Budget Memo</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Spending is </w:t></w:r><w:r><w:t>on track.</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Item</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Cost</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Paper</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>12</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	_ = f.Close()

	res, err := extract.New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Title != "Budget Memo" {
		t.Fatalf("title = %q", res.Title)
	}
	want := "Budget Memo\nSpending is on track.\nItem\tCost\nPaper\t12"
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
}

func TestExtractDOCXWithoutBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, _ := os.Create(path)
	zw := zip.NewWriter(f)
	_, _ = zw.Create("docProps/app.xml")
	_ = zw.Close()
	_ = f.Close()

	_, err := extract.New().Extract(context.Background(), path)
	if !errx.HasCode(err, extract.ErrMalformed) {
		t.Fatalf("err = %v, want malformed", err)
	}
}

func TestExtractUnsupported(t *testing.T) {
	path := writeFile(t, "scan.png", "not really a png")
	_, err := extract.New().Extract(context.Background(), path)
	if !errx.HasCode(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want unsupported", err)
	}
}

func TestExtractHonoursCancelledContext(t *testing.T) {
	path := writeFile(t, "a.txt", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := extract.New().Extract(ctx, path); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
