package aimistral

import (
	"net/http"
	"time"
)

// ProviderOption configures the Mistral provider
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ProviderOption {
	return func(p *Provider) {
		if url != "" {
			p.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if p.httpClient == nil {
			p.httpClient = &http.Client{}
		}
		p.httpClient.Timeout = timeout
	}
}

// WithMaxRetries enables in-client retries of retryable responses.
func WithMaxRetries(maxRetries int) ProviderOption {
	return func(p *Provider) {
		p.maxRetries = maxRetries
	}
}

// WithDefaultModel sets the default OCR model
func WithDefaultModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.defaultModel = model
		}
	}
}

func WithPriority(priority int) ProviderOption {
	return func(p *Provider) {
		p.priority = priority
	}
}
