// Package aiopenai recognises page images with OpenAI vision chat models.
package aiopenai

import (
	"context"
	"os"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	ProviderName = "openai"
	DefaultModel = "gpt-4o"
)

// Completer sends one page image plus the layout prompt to Chat Completions.
type Completer struct {
	client openai.Client
	apiKey string
}

// NewCompleter creates a completer. An empty key falls back to OPENAI_API_KEY.
func NewCompleter(apiKey string, opts ...option.RequestOption) *Completer {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Completer{
		client: openai.NewClient(options...),
		apiKey: apiKey,
	}
}

// New builds the OCR provider from configuration.
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

// Configured reports whether an API key is present.
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

	completion, err := c.client.Chat.Completions.New(ctx, VisionParams(req))
	if err != nil {
		return "", ParseOpenAIError(err).WithDetail("model", req.Model)
	}
	text, ok := ReplyText(completion)
	if !ok {
		return "", errorRegistry.New(ErrNoChoicesInResponse).
			WithDetail("model", req.Model)
	}
	return text, nil
}

// VisionParams builds a single-turn request carrying the prompt and the
// page image as a data URL. Shared with the Azure deployment client.
func VisionParams(req visionocr.Request) openai.ChatCompletionNewParams {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    req.Image.DataURL(),
			Detail: "high",
		}),
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		Model:       req.Model,
		Temperature: openai.Float(0),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

// ReplyText returns the first choice's content.
func ReplyText(completion *openai.ChatCompletion) (string, bool) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", false
	}
	return completion.Choices[0].Message.Content, true
}
