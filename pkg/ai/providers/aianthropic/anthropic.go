// Package aianthropic recognises page images with Claude vision models.
package aianthropic

import (
	"context"
	"os"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	ProviderName = "anthropic"
	DefaultModel = "claude-sonnet-4-20250514"
)

// Completer sends the page image as a base64 image block followed by the
// layout prompt.
type Completer struct {
	client anthropic.Client
	apiKey string
}

// NewCompleter creates a completer. An empty key falls back to ANTHROPIC_API_KEY.
func NewCompleter(apiKey string, opts ...option.RequestOption) *Completer {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Completer{
		client: anthropic.NewClient(options...),
		apiKey: apiKey,
	}
}

func New(cfg config.ProviderConfig, opts ...visionocr.Option) *visionocr.Provider {
	var reqOpts []option.RequestOption
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	c := NewCompleter(cfg.APIKey, reqOpts...)

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	opts = append([]visionocr.Option{visionocr.WithAvailability(c.Configured)}, opts...)
	return visionocr.New(ProviderName, model, c, opts...)
}

func (c *Completer) Configured() bool {
	return c.apiKey != ""
}

func (c *Completer) Complete(ctx context.Context, req visionocr.Request) (string, error) {
	if c.apiKey == "" {
		return "", errorRegistry.New(ErrMissingAPIKey)
	}
	if len(req.Image.Data) == 0 {
		return "", errorRegistry.New(ErrEmptyImage)
	}

	maxTokens := int64(4096)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(req.Image.MimeType, req.Image.Base64()),
				anthropic.NewTextBlock(req.Prompt),
			),
		},
		Temperature: anthropic.Float(0),
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", ParseAnthropicError(err).WithDetail("model", req.Model)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errorRegistry.New(ErrEmptyResponse).
			WithDetail("model", req.Model).
			WithDetail("stop_reason", string(message.StopReason))
	}
	return sb.String(), nil
}
