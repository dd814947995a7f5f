package aimistral

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/asyncx"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

const (
	DefaultBaseURL = "https://api.mistral.ai/v1"
	DefaultTimeout = 5 * time.Minute
	DefaultModel   = "mistral-ocr-latest"
)

// HTTPClient handles all HTTP communication with Mistral API
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	// maxRetries is 0 by default; the OCR client above owns retry policy.
	maxRetries int
}

// NewHTTPClient creates a new HTTP client for Mistral API
func NewHTTPClient(apiKey, baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &HTTPClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Post makes a POST request to the Mistral API
func (c *HTTPClient) Post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(err, ErrInvalidInput).
			WithDetail("error", "failed to marshal request payload")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := asyncx.Sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				return nil, WrapError(err, ErrAPIRequest).
					WithDetail("error", "context cancelled during retry")
			}
		}

		body, err := c.doRequest(ctx, endpoint, jsonData)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !errx.IsRetryable(err) {
			break
		}
	}

	return nil, lastErr
}

func (c *HTTPClient) doRequest(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	url := c.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(err, ErrAPIRequest).
			WithDetail("error", "failed to create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "hybridparse-ocr/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, WrapError(err, ErrAPIRequest).
			WithDetail("error", "HTTP request failed").
			WithDetail("url", url)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(err, ErrAPIResponse).
			WithDetail("error", "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ParseAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}
