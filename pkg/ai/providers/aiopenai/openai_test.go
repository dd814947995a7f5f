package aiopenai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aiopenai"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/openai/openai-go/v3/option"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"pages\":[]}"}}]
}`

func newServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func request() visionocr.Request {
	return visionocr.Request{
		Model:     "gpt-4o",
		Prompt:    "read this page",
		Image:     ocr.NewImage([]byte("\x89PNG\r\n\x1a\nxxxx"), "image/png"),
		MaxTokens: 1024,
	}
}

func TestCompleteSendsImageAndReturnsContent(t *testing.T) {
	var seen map[string]any
	srv := newServer(t, http.StatusOK, completionJSON, &seen)
	c := aiopenai.NewCompleter("sk-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	got, err := c.Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"pages":[]}` {
		t.Fatalf("reply = %q", got)
	}
	if seen["model"] != "gpt-4o" {
		t.Fatalf("model = %v", seen["model"])
	}
	raw, _ := json.Marshal(seen["messages"])
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Fatalf("image data URL missing from request: %s", raw)
	}
	if !strings.Contains(string(raw), "read this page") {
		t.Fatalf("prompt missing from request: %s", raw)
	}
}

func TestCompleteClassifiesStatus(t *testing.T) {
	cases := []struct {
		status    int
		body      string
		retryable bool
	}{
		{http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, false},
		{http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, true},
		{http.StatusBadRequest, `{"error":{"message":"bad image","type":"invalid_request_error"}}`, false},
		{http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, true},
	}
	for _, tc := range cases {
		srv := newServer(t, tc.status, tc.body, nil)
		c := aiopenai.NewCompleter("sk-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

		_, err := c.Complete(context.Background(), request())
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := errx.IsRetryable(err); got != tc.retryable {
			t.Fatalf("status %d: retryable = %v, want %v (%v)", tc.status, got, tc.retryable, err)
		}
	}
}

func TestCompleteRequiresKeyAndImage(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c := aiopenai.NewCompleter("")
	if _, err := c.Complete(context.Background(), request()); !errx.HasCode(err, aiopenai.ErrMissingAPIKey) {
		t.Fatalf("expected missing key, got %v", err)
	}

	c = aiopenai.NewCompleter("sk-test")
	req := request()
	req.Image = ocr.Image{}
	if _, err := c.Complete(context.Background(), req); !errx.HasCode(err, aiopenai.ErrEmptyImage) {
		t.Fatalf("expected empty image, got %v", err)
	}
}

func TestNewProviderAvailability(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p := aiopenai.New(config.ProviderConfig{})
	if p.Available() {
		t.Fatal("provider without key should be unavailable")
	}
	p = aiopenai.New(config.ProviderConfig{APIKey: "sk-test", Model: "gpt-4.1"})
	if !p.Available() {
		t.Fatal("provider with key should be available")
	}
	if p.Name() != "openai (gpt-4.1)" {
		t.Fatalf("name = %q", p.Name())
	}
}
