//go:build ocr

package aitesseract

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Provider recognises one page per call with a fresh gosseract client,
// emitting one text element per detected paragraph.
type Provider struct {
	priority  int
	languages []string
}

func New(opts ...Option) *Provider {
	return newProvider(opts)
}

func (p *Provider) Available() bool { return true }

func (p *Provider) Recognize(ctx context.Context, img ocr.Image, opts ...ocr.Option) (*ocr.Document, error) {
	if len(img.Data) == 0 {
		return nil, errorRegistry.New(ErrEmptyImage)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	langs := p.languages
	if o := ocr.ApplyOptions(opts...); len(o.LanguageHints) > 0 {
		langs = o.LanguageHints
	}

	start := time.Now()
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(img.Data); err != nil {
		return nil, errorRegistry.NewWithCause(ErrRecognize, err).WithDetail("step", "set image")
	}
	if err := client.SetLanguage(langs...); err != nil {
		return nil, errorRegistry.NewWithCause(ErrRecognize, err).
			WithDetail("step", "set language").
			NonRetryable()
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_PARA)
	if err != nil {
		return nil, errorRegistry.NewWithCause(ErrRecognize, err).WithDetail("step", "layout")
	}

	pageNo := img.PageNo
	if pageNo <= 0 {
		pageNo = 1
	}
	page := ocr.Page{PageNo: pageNo}
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		page.Layout = append(page.Layout, ocr.LayoutElement{
			Type:       ocr.TypeText,
			Text:       text,
			BBox:       []float64{float64(b.Box.Min.X), float64(b.Box.Min.Y), float64(b.Box.Max.X), float64(b.Box.Max.Y)},
			Confidence: ocr.Float(b.Confidence / confidenceScale),
		})
	}

	if len(page.Layout) == 0 {
		text, err := client.Text()
		if err != nil {
			return nil, errorRegistry.NewWithCause(ErrRecognize, err).WithDetail("step", "text")
		}
		if text = strings.TrimSpace(text); text != "" {
			page.Layout = append(page.Layout, ocr.LayoutElement{Type: ocr.TypeText, Text: text})
		}
	}

	return &ocr.Document{
		Pages:            []ocr.Page{page},
		ModelInfo:        "tesseract " + gosseract.Version(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
