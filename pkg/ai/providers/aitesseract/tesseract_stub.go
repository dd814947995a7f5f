//go:build !ocr

package aitesseract

import (
	"context"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
)

// Provider is the stand-in used when Tesseract support is not compiled in.
type Provider struct {
	priority  int
	languages []string
}

func New(opts ...Option) *Provider {
	return newProvider(opts)
}

func (p *Provider) Available() bool { return false }

func (p *Provider) Recognize(context.Context, ocr.Image, ...ocr.Option) (*ocr.Document, error) {
	return nil, errorRegistry.New(ErrNotEnabled).NonRetryable()
}
