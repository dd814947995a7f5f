// Package aiazure recognises page images with an Azure OpenAI vision deployment.
package aiazure

import (
	"context"
	"os"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aiopenai"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

const ProviderName = "azure"

// CompleterOption configures the Azure completer.
type CompleterOption func(*Completer)

// WithAPIVersion sets the Azure OpenAI API version.
func WithAPIVersion(version string) CompleterOption {
	return func(c *Completer) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithAzureADCredential authenticates with Entra ID instead of an API key.
func WithAzureADCredential(cred azcore.TokenCredential) CompleterOption {
	return func(c *Completer) {
		c.tokenCredential = cred
	}
}

// WithRequestOptions appends raw SDK request options.
func WithRequestOptions(opts ...option.RequestOption) CompleterOption {
	return func(c *Completer) {
		c.extra = append(c.extra, opts...)
	}
}

// Completer talks to a single deployment; the deployment name is sent as
// the model.
type Completer struct {
	client          openai.Client
	endpoint        string
	apiKey          string
	apiVersion      string
	tokenCredential azcore.TokenCredential
	extra           []option.RequestOption
}

func NewCompleter(endpoint, apiKey string, opts ...CompleterOption) *Completer {
	c := &Completer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiVersion: "2024-06-01",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}

	clientOpts := []option.RequestOption{azure.WithEndpoint(c.endpoint, c.apiVersion)}
	if c.tokenCredential != nil {
		clientOpts = append(clientOpts, azure.WithTokenCredential(c.tokenCredential))
	} else {
		clientOpts = append(clientOpts, azure.WithAPIKey(c.apiKey))
	}
	clientOpts = append(clientOpts, c.extra...)

	c.client = openai.NewClient(clientOpts...)
	return c
}

// New builds the OCR provider from configuration. With
// UseDefaultCredential the ambient Azure identity is used.
func New(cfg config.AzureConfig, opts ...visionocr.Option) *visionocr.Provider {
	copts := []CompleterOption{WithAPIVersion(cfg.APIVersion)}
	if cfg.UseDefaultCredential {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			logx.WithError(err).Warn("azure default credential unavailable, falling back to api key")
		} else {
			copts = append(copts, WithAzureADCredential(cred))
		}
	}
	c := NewCompleter(cfg.Endpoint, cfg.APIKey, copts...)

	opts = append([]visionocr.Option{visionocr.WithAvailability(c.Configured)}, opts...)
	return visionocr.New(ProviderName, cfg.Deployment, c, opts...)
}

// Configured reports whether an endpoint and some credential are set.
func (c *Completer) Configured() bool {
	return c.endpoint != "" && (c.apiKey != "" || c.tokenCredential != nil)
}

func (c *Completer) Complete(ctx context.Context, req visionocr.Request) (string, error) {
	if c.endpoint == "" {
		return "", errorRegistry.New(ErrMissingEndpoint)
	}
	if c.apiKey == "" && c.tokenCredential == nil {
		return "", errorRegistry.New(ErrMissingCredentials)
	}
	if req.Model == "" {
		return "", errorRegistry.New(ErrMissingDeployment)
	}
	if len(req.Image.Data) == 0 {
		return "", errorRegistry.New(ErrEmptyImage)
	}

	completion, err := c.client.Chat.Completions.New(ctx, aiopenai.VisionParams(req))
	if err != nil {
		return "", ParseAzureError(err).WithDetail("deployment", req.Model)
	}
	text, ok := aiopenai.ReplyText(completion)
	if !ok {
		return "", errorRegistry.New(ErrNoChoicesInResponse).
			WithDetail("deployment", req.Model)
	}
	return text, nil
}
