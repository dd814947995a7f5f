// Package aitesseract is the offline OCR fallback backed by a local
// Tesseract install.
//
// Recognition needs cgo and the "ocr" build tag:
//
//	go build -tags ocr ./...
//
// Without the tag the provider compiles but reports itself unavailable,
// so the failover chain simply skips it.
package aitesseract

import (
	"net/http"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

const (
	ProviderName = "tesseract"

	// DefaultPriority places Tesseract after every hosted model.
	DefaultPriority = 1000

	// confidenceScale converts Tesseract's 0..100 scores.
	confidenceScale = 100.0
)

var errorRegistry = errx.NewRegistry("TESSERACT")

var (
	ErrNotEnabled = errorRegistry.Register("NOT_ENABLED", errx.TypeInternal, http.StatusServiceUnavailable, "Tesseract support not compiled in; rebuild with -tags ocr")
	ErrEmptyImage = errorRegistry.Register("EMPTY_IMAGE", errx.TypeValidation, http.StatusBadRequest, "Page image is empty")
	ErrRecognize  = errorRegistry.Register("RECOGNIZE_FAILED", errx.TypeExternal, http.StatusBadGateway, "Tesseract recognition failed")
)

type Option func(*Provider)

func WithPriority(p int) Option {
	return func(t *Provider) { t.priority = p }
}

// WithLanguages sets the traineddata languages, e.g. "eng", "deu".
func WithLanguages(langs ...string) Option {
	return func(t *Provider) {
		if len(langs) > 0 {
			t.languages = langs
		}
	}
}

func (p *Provider) Name() string  { return ProviderName }
func (p *Provider) Priority() int { return p.priority }

func newProvider(opts []Option) *Provider {
	p := &Provider{priority: DefaultPriority, languages: []string{"eng"}}
	for _, o := range opts {
		o(p)
	}
	return p
}
