package aigemini_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aigemini"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

func TestParseGeminiErrorClassifies(t *testing.T) {
	cases := []struct {
		msg       string
		code      *errx.ErrorCode
		retryable bool
	}{
		{"Error 429, Message: quota, Status: RESOURCE_EXHAUSTED", aigemini.ErrAPIRateLimit, true},
		{"Error 403, Message: denied, Status: PERMISSION_DENIED", aigemini.ErrAPIUnauthorized, false},
		{"Error 400, Message: bad image, Status: INVALID_ARGUMENT", aigemini.ErrInvalidArgument, false},
		{"Error 503, Message: busy, Status: UNAVAILABLE", aigemini.ErrAPIResponse, true},
		{"Error 404, Message: no model, Status: NOT_FOUND", aigemini.ErrModelNotFound, false},
	}
	for _, tc := range cases {
		err := aigemini.ParseGeminiError(errors.New(tc.msg))
		if !errx.HasCode(err, tc.code) {
			t.Fatalf("%q: got %v", tc.msg, err)
		}
		if errx.IsRetryable(err) != tc.retryable {
			t.Fatalf("%q: retryable = %v", tc.msg, !tc.retryable)
		}
	}
}

func TestNewWithoutKeyIsUnavailable(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	p := aigemini.New(context.Background(), config.ProviderConfig{})
	if p.Available() {
		t.Fatal("expected unavailable provider")
	}
	if _, err := p.Recognize(context.Background(), ocr.NewImage([]byte("x"), "image/png")); err == nil {
		t.Fatal("expected error from unavailable provider")
	}
}

func TestNewCompleterRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := aigemini.NewCompleter(context.Background(), ""); !errx.HasCode(err, aigemini.ErrMissingAPIKey) {
		t.Fatalf("expected missing key, got %v", err)
	}
}
