package aimistral_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aimistral"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

const ocrResponse = `{
  "model": "mistral-ocr-2505",
  "pages": [{
    "index": 0,
    "markdown": "# Quarterly Report\n\nRevenue grew.\n\n| Region | Sales |\n| --- | --- |\n| EU | 10 |\n\n![img-0.jpeg](img-0.jpeg)",
    "images": [{"id": "img-0.jpeg", "top_left_x": 10, "top_left_y": 20, "bottom_right_x": 110, "bottom_right_y": 220}],
    "dimensions": {"dpi": 200, "width": 1700, "height": 2200}
  }],
  "usage_info": {"pages_processed": 1}
}`

func TestRecognizeMapsMarkdownToLayout(t *testing.T) {
	var req aimistral.OCRRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		_, _ = io.WriteString(w, ocrResponse)
	}))
	defer srv.Close()

	p := aimistral.NewProvider("key", aimistral.WithBaseURL(srv.URL))
	img := ocr.NewImage([]byte("png-bytes"), "image/png")
	img.PageNo = 3

	doc, err := p.Recognize(context.Background(), img)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if auth != "Bearer key" {
		t.Fatalf("auth = %q", auth)
	}
	if req.Document.Type != "image_url" || !strings.HasPrefix(req.Document.ImageURL, "data:image/png;base64,") {
		t.Fatalf("document = %+v", req.Document)
	}
	if req.Model != aimistral.DefaultModel {
		t.Fatalf("model = %q", req.Model)
	}

	if len(doc.Pages) != 1 {
		t.Fatalf("pages = %d", len(doc.Pages))
	}
	page := doc.Pages[0]
	if page.PageNo != 3 {
		t.Fatalf("page no = %d", page.PageNo)
	}
	if len(page.ImageSize) != 2 || page.ImageSize[0] != 1700 {
		t.Fatalf("image size = %v", page.ImageSize)
	}
	types := make([]string, 0, len(page.Layout))
	for _, e := range page.Layout {
		types = append(types, e.Type)
	}
	if got := strings.Join(types, ","); got != "title,text,table,image" {
		t.Fatalf("layout types = %s", got)
	}
	if fig := page.Layout[3]; len(fig.BBox) != 4 || fig.BBox[2] != 110 {
		t.Fatalf("figure bbox = %v", fig.BBox)
	}
	if doc.ModelInfo != "mistral-ocr-2505" {
		t.Fatalf("model info = %q", doc.ModelInfo)
	}
}

func TestRecognizeErrorRetryability(t *testing.T) {
	cases := []struct {
		status    int
		body      string
		retryable bool
	}{
		{http.StatusTooManyRequests, `{"message":"slow down"}`, true},
		{http.StatusUnauthorized, `{"message":"bad key"}`, false},
		{http.StatusForbidden, `{"error":{"message":"no credit","type":"quota_exceeded"}}`, false},
		{http.StatusBadGateway, `oops`, true},
		{http.StatusBadRequest, `{"message":"bad image"}`, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, tc.body)
		}))
		p := aimistral.NewProvider("key", aimistral.WithBaseURL(srv.URL))
		_, err := p.Recognize(context.Background(), ocr.NewImage([]byte("x"), "image/png"))
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if errx.IsRetryable(err) != tc.retryable {
			t.Fatalf("status %d: retryable = %v (%v)", tc.status, !tc.retryable, err)
		}
	}
}

func TestInClientRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, ocrResponse)
	}))
	defer srv.Close()

	p := aimistral.NewProvider("key", aimistral.WithBaseURL(srv.URL), aimistral.WithMaxRetries(1))
	if _, err := p.Recognize(context.Background(), ocr.NewImage([]byte("x"), "image/png")); err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestUnavailableWithoutKey(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	p := aimistral.NewProvider("")
	if p.Available() {
		t.Fatal("expected unavailable")
	}
	if _, err := p.Recognize(context.Background(), ocr.NewImage([]byte("x"), "image/png")); !errx.HasCode(err, aimistral.ErrMissingAPIKey) {
		t.Fatalf("expected missing key, got %v", err)
	}
}
