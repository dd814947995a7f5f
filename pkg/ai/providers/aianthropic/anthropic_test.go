package aianthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aianthropic"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func TestCompleteSendsImageBlock(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Content []struct {
				Type   string `json:"type"`
				Source struct {
					MediaType string `json:"media_type"`
				} `json:"source"`
			} `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude",
			"content":[{"type":"text","text":"{\"pages\":"},{"type":"text","text":"[]}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	c := aianthropic.NewCompleter("key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	got, err := c.Complete(context.Background(), visionocr.Request{
		Model:  "claude",
		Prompt: "read",
		Image:  ocr.NewImage([]byte("jpegdata"), "image/jpeg"),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"pages":[]}` {
		t.Fatalf("reply = %q", got)
	}
	if body.Model != "claude" || len(body.Messages) != 1 || len(body.Messages[0].Content) != 2 {
		t.Fatalf("unexpected request: %+v", body)
	}
	img := body.Messages[0].Content[0]
	if img.Type != "image" || img.Source.MediaType != "image/jpeg" {
		t.Fatalf("first block = %+v", img)
	}
}

func TestCompleteOverloadedIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	c := aianthropic.NewCompleter("key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := c.Complete(context.Background(), visionocr.Request{Model: "claude", Image: ocr.NewImage([]byte("x"), "image/png")})
	if !errx.HasCode(err, aianthropic.ErrAPIOverloaded) {
		t.Fatalf("expected overloaded, got %v", err)
	}
	if !errx.IsRetryable(err) {
		t.Fatal("overloaded should be retryable")
	}
}

func TestCompleteMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := aianthropic.NewCompleter("").Complete(context.Background(), visionocr.Request{})
	if !errx.HasCode(err, aianthropic.ErrMissingAPIKey) || errx.IsRetryable(err) {
		t.Fatalf("expected non-retryable missing key, got %v", err)
	}
}
