//go:build !ocr

package aitesseract_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aitesseract"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

func TestStubIsSkippedByChain(t *testing.T) {
	p := aitesseract.New(aitesseract.WithPriority(5))
	if p.Available() {
		t.Fatal("stub must report unavailable")
	}
	if p.Priority() != 5 {
		t.Fatalf("priority = %d", p.Priority())
	}

	_, err := p.Recognize(context.Background(), ocr.NewImage([]byte("x"), "image/png"))
	if !errx.HasCode(err, aitesseract.ErrNotEnabled) || errx.IsRetryable(err) {
		t.Fatalf("expected non-retryable not-enabled error, got %v", err)
	}
}
