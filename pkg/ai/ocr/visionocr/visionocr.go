// Package visionocr turns any multimodal chat model into an ocr.Provider.
// The model is asked for structured layout JSON; malformed or truncated
// replies get exactly one more call with a simplified prompt.
package visionocr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
)

// Request is one multimodal completion call.
type Request struct {
	Model     string
	Prompt    string
	Image     ocr.Image
	MaxTokens int
}

// Completer sends an image plus a prompt to a vision model and returns
// the text reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Provider implements ocr.Provider over a Completer.
type Provider struct {
	name      string
	model     string
	priority  int
	maxTokens int
	available func() bool
	completer Completer
}

type Option func(*Provider)

func WithPriority(p int) Option {
	return func(v *Provider) { v.priority = p }
}

func WithMaxTokens(n int) Option {
	return func(v *Provider) {
		if n > 0 {
			v.maxTokens = n
		}
	}
}

// WithAvailability overrides the availability check (default: always available).
func WithAvailability(fn func() bool) Option {
	return func(v *Provider) { v.available = fn }
}

func New(name, model string, completer Completer, opts ...Option) *Provider {
	p := &Provider{
		name:      name,
		model:     model,
		priority:  100,
		maxTokens: 8192,
		available: func() bool { return true },
		completer: completer,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provider) Name() string    { return p.name + " (" + p.model + ")" }
func (p *Provider) Priority() int   { return p.priority }
func (p *Provider) Available() bool { return p.completer != nil && p.available() }

func (p *Provider) Recognize(ctx context.Context, img ocr.Image, opts ...ocr.Option) (*ocr.Document, error) {
	if p.completer == nil {
		return nil, ocr.ErrRegistry.New(ocr.ErrNoProviderAvailable).
			WithDetail("provider", p.name).
			NonRetryable()
	}
	o := ocr.ApplyOptions(opts...)
	model := p.model
	if o.Model != "" {
		model = o.Model
	}
	maxTokens := p.maxTokens
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}

	log := logx.WithFields(logx.Fields{"provider": p.name, "model": model, "page": img.PageNo})
	start := time.Now()

	req := Request{Model: model, Prompt: FullPrompt, Image: img, MaxTokens: maxTokens}
	reply, err := p.completer.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if verr := Validate(reply); verr == nil {
		doc, perr := parse(reply)
		if perr == nil {
			doc.ModelInfo = model
			doc.ProcessingTimeMs = time.Since(start).Milliseconds()
			return doc, nil
		}
		log.WithError(perr).Warn("full layout reply did not decode, retrying with simplified prompt")
	} else {
		log.WithError(verr).Warn("full layout reply incomplete, retrying with simplified prompt")
	}

	req.Prompt = SimplifiedPrompt
	reply, err = p.completer.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if verr := Validate(reply); verr != nil {
		return nil, ocr.ErrRegistry.NewWithCause(ocr.ErrInvalidResponse, verr).
			WithDetail("provider", p.name).
			WithDetail("mode", "simplified").
			Retryable()
	}
	doc, err := parse(reply)
	if err != nil {
		return nil, ocr.ErrRegistry.NewWithCause(ocr.ErrInvalidResponse, err).
			WithDetail("provider", p.name).
			Retryable()
	}
	doc.ModelInfo = model + " (simplified)"
	doc.ProcessingTimeMs = time.Since(start).Milliseconds()
	log.Info("simplified layout reply accepted")
	return doc, nil
}

func parse(reply string) (*ocr.Document, error) {
	var doc ocr.Document
	if err := json.Unmarshal([]byte(ExtractJSON(reply)), &doc); err != nil {
		return nil, errx.Wrap(err, "decode layout JSON", errx.TypeExternal)
	}
	if len(doc.Pages) == 0 {
		return nil, ocr.ErrRegistry.New(ocr.ErrEmptyResult)
	}
	for i := range doc.Pages {
		if doc.Pages[i].PageNo == 0 {
			doc.Pages[i].PageNo = i + 1
		}
	}
	return &doc, nil
}
