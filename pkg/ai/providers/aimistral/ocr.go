// Package aimistral adapts the Mistral OCR endpoint, which answers with
// per-page markdown, to the structured ocr.Provider contract.
package aimistral

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/config"
)

const (
	ProviderName = "mistral"

	maxImageBytes = 50 * 1024 * 1024
)

// Provider implements ocr.Provider on top of /v1/ocr.
type Provider struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	client       *HTTPClient
	maxRetries   int
	defaultModel string
	priority     int
}

// NewProvider creates the provider. An empty key falls back to
// MISTRAL_API_KEY; without one the provider reports itself unavailable.
func NewProvider(apiKey string, opts ...ProviderOption) *Provider {
	if apiKey == "" {
		apiKey = os.Getenv("MISTRAL_API_KEY")
	}

	p := &Provider{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		defaultModel: DefaultModel,
		priority:     100,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.client = NewHTTPClient(p.apiKey, p.baseURL, p.httpClient)
	p.client.maxRetries = p.maxRetries
	return p
}

// New builds the provider from configuration.
func New(cfg config.ProviderConfig, opts ...ProviderOption) *Provider {
	opts = append([]ProviderOption{WithBaseURL(cfg.BaseURL), WithDefaultModel(cfg.Model)}, opts...)
	return NewProvider(cfg.APIKey, opts...)
}

func (p *Provider) Name() string    { return ProviderName + " (" + p.defaultModel + ")" }
func (p *Provider) Priority() int   { return p.priority }
func (p *Provider) Available() bool { return p.apiKey != "" }

// Recognize sends the page image as an image_url data URL and splits the
// returned markdown into layout elements.
func (p *Provider) Recognize(ctx context.Context, img ocr.Image, opts ...ocr.Option) (*ocr.Document, error) {
	if p.apiKey == "" {
		return nil, errorRegistry.New(ErrMissingAPIKey)
	}
	if len(img.Data) == 0 {
		return nil, errorRegistry.New(ErrInvalidInput).
			WithDetail("error", "image data cannot be empty")
	}
	if len(img.Data) > maxImageBytes {
		return nil, errorRegistry.New(ErrDocumentTooLarge).
			WithDetail("size", len(img.Data))
	}

	options := ocr.ApplyOptions(opts...)
	model := options.Model
	if model == "" {
		model = p.defaultModel
	}

	start := time.Now()
	req := &OCRRequest{
		Model: model,
		Document: DocumentInput{
			Type:     "image_url",
			ImageURL: img.DataURL(),
		},
	}

	respBody, err := p.client.Post(ctx, "/ocr", req)
	if err != nil {
		return nil, err
	}

	var resp OCRResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, WrapError(err, ErrAPIResponse).
			WithDetail("error", "failed to parse OCR response")
	}
	if len(resp.Pages) == 0 {
		return nil, errorRegistry.New(ErrEmptyResult)
	}

	doc := &ocr.Document{
		Pages:            []ocr.Page{toPage(resp.Pages, img.PageNo)},
		ModelInfo:        model,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if resp.Model != "" {
		doc.ModelInfo = resp.Model
	}
	return doc, nil
}

// toPage folds every returned page into one; a single image yields one
// page in practice.
func toPage(pages []PageData, pageNo int) ocr.Page {
	if pageNo <= 0 {
		pageNo = 1
	}
	page := ocr.Page{PageNo: pageNo}
	for _, pd := range pages {
		if page.ImageSize == nil && pd.Dimensions != nil && pd.Dimensions.Width > 0 {
			page.ImageSize = []int{pd.Dimensions.Width, pd.Dimensions.Height}
		}
		if pd.Header != nil && *pd.Header != "" {
			page.Layout = append(page.Layout, ocr.LayoutElement{Type: ocr.TypeHeader, Text: *pd.Header})
		}

		elements := ocr.ElementsFromMarkdown(pd.Markdown)
		attachFigureBoxes(elements, pd.Images)
		page.Layout = append(page.Layout, elements...)

		if pd.Footer != nil && *pd.Footer != "" {
			page.Layout = append(page.Layout, ocr.LayoutElement{Type: ocr.TypeFootnote, Text: *pd.Footer})
		}
	}
	return page
}

// attachFigureBoxes copies figure coordinates onto image elements whose
// markdown reference names the figure id.
func attachFigureBoxes(elements []ocr.LayoutElement, images []ImageData) {
	if len(images) == 0 {
		return
	}
	byID := make(map[string]ImageData, len(images))
	for _, im := range images {
		byID[im.ID] = im
	}
	for i := range elements {
		e := &elements[i]
		if e.Type != ocr.TypeImage {
			continue
		}
		src, _ := e.Attributes["src"].(string)
		im, ok := byID[src]
		if !ok {
			continue
		}
		e.BBox = []float64{
			float64(im.TopLeftX), float64(im.TopLeftY),
			float64(im.BottomRightX), float64(im.BottomRightY),
		}
	}
}
