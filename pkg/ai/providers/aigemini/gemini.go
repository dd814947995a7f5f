// Package aigemini recognises page images with Google Gemini models, either
// through the Gemini API or Vertex AI.
package aigemini

import (
	"context"
	"os"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

// CompleterOption configures the Gemini completer.
type CompleterOption func(*Completer)

// WithVertexAI routes calls through Vertex AI using ambient credentials.
func WithVertexAI(project, location string) CompleterOption {
	return func(c *Completer) {
		c.project = project
		c.location = location
		c.useVertexAI = true
	}
}

// WithHTTPOptions overrides the base URL and headers, mostly for tests.
func WithHTTPOptions(opts genai.HTTPOptions) CompleterOption {
	return func(c *Completer) {
		c.httpOptions = opts
	}
}

type Completer struct {
	client      *genai.Client
	apiKey      string
	project     string
	location    string
	useVertexAI bool
	httpOptions genai.HTTPOptions
}

// NewCompleter builds the genai client. An empty key falls back to
// GEMINI_API_KEY.
func NewCompleter(ctx context.Context, apiKey string, opts ...CompleterOption) (*Completer, error) {
	c := &Completer{apiKey: apiKey}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("GEMINI_API_KEY")
	}

	cfg := &genai.ClientConfig{HTTPOptions: c.httpOptions}
	if c.useVertexAI {
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = c.project
		cfg.Location = c.location
	} else {
		if c.apiKey == "" {
			return nil, errorRegistry.New(ErrMissingAPIKey)
		}
		cfg.APIKey = c.apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, WrapError(err, ErrClientInit)
	}
	c.client = client
	return c, nil
}

// New builds the OCR provider. A missing key yields an unavailable
// provider rather than an error so the chain can still be assembled.
func New(ctx context.Context, cfg config.ProviderConfig, opts ...visionocr.Option) *visionocr.Provider {
	var copts []CompleterOption
	if cfg.BaseURL != "" {
		copts = append(copts, WithHTTPOptions(genai.HTTPOptions{BaseURL: cfg.BaseURL}))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	c, err := NewCompleter(ctx, cfg.APIKey, copts...)
	if err != nil {
		opts = append([]visionocr.Option{visionocr.WithAvailability(func() bool { return false })}, opts...)
		return visionocr.New(ProviderName, model, nil, opts...)
	}
	return visionocr.New(ProviderName, model, c, opts...)
}

func (c *Completer) Complete(ctx context.Context, req visionocr.Request) (string, error) {
	if len(req.Image.Data) == 0 {
		return "", errorRegistry.New(ErrEmptyImage)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromBytes(req.Image.Data, req.Image.MimeType),
			genai.NewPartFromText(req.Prompt),
		},
	}}

	gc := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, contents, gc)
	if err != nil {
		return "", ParseGeminiError(err).WithDetail("model", req.Model)
	}
	return replyText(result)
}

func replyText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", errorRegistry.New(ErrAPIResponse).
			WithDetail("error", "no candidates in response")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil {
		return "", errorRegistry.New(ErrAPIResponse).
			WithDetail("finish_reason", string(candidate.FinishReason))
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
