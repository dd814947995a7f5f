package aimistral

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("MISTRAL")

	// API Errors
	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to make request to Mistral API",
	)

	ErrAPIResponse = errorRegistry.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from Mistral API",
	)

	ErrAPIUnauthorized = errorRegistry.Register(
		"API_UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Invalid or missing API key",
	)

	ErrAPIRateLimit = errorRegistry.Register(
		"API_RATE_LIMIT",
		errx.TypeExternal,
		http.StatusTooManyRequests,
		"Mistral API rate limit exceeded",
	)

	ErrAPIQuotaExceeded = errorRegistry.Register(
		"API_QUOTA_EXCEEDED",
		errx.TypeExternal,
		http.StatusForbidden,
		"Mistral API quota exceeded",
	)

	// Input Errors
	ErrInvalidInput = errorRegistry.Register(
		"INVALID_INPUT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Invalid input parameters",
	)

	ErrDocumentTooLarge = errorRegistry.Register(
		"DOCUMENT_TOO_LARGE",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Image exceeds maximum size (50MB)",
	)

	ErrEmptyResult = errorRegistry.Register(
		"EMPTY_RESULT",
		errx.TypeExternal,
		http.StatusBadGateway,
		"OCR returned no pages",
	)

	ErrMissingAPIKey = errorRegistry.Register(
		"MISSING_API_KEY",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Missing Mistral API key",
	)
)

// MistralAPIError represents an error from the Mistral API
type MistralAPIError struct {
	StatusCode int
	Message    string
	Type       string
	Details    map[string]any
}

func (e *MistralAPIError) Error() string {
	return fmt.Sprintf("Mistral API error (status %d): %s", e.StatusCode, e.Message)
}

// ParseAPIError parses an error response from the Mistral API. Quota
// exhaustion is marked non-retryable; 5xx and 429 stay retryable.
func ParseAPIError(statusCode int, body []byte) *errx.Error {
	apiErr := &MistralAPIError{
		StatusCode: statusCode,
		Details:    make(map[string]any),
	}

	var errResp struct {
		Error struct {
			Message string         `json:"message"`
			Type    string         `json:"type"`
			Details map[string]any `json:"details"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
			apiErr.Type = errResp.Error.Type
			apiErr.Details = errResp.Error.Details
		} else if errResp.Message != "" {
			apiErr.Message = errResp.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}

	var baseErr *errx.ErrorCode
	switch {
	case statusCode == http.StatusForbidden &&
		(apiErr.Type == "quota_exceeded" || apiErr.Type == "insufficient_quota"):
		baseErr = ErrAPIQuotaExceeded
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		baseErr = ErrAPIUnauthorized
	case statusCode == http.StatusTooManyRequests:
		baseErr = ErrAPIRateLimit
	case statusCode == http.StatusRequestEntityTooLarge:
		baseErr = ErrDocumentTooLarge
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		baseErr = ErrInvalidInput
	case statusCode >= 500:
		baseErr = ErrAPIResponse
	default:
		baseErr = ErrAPIRequest
	}

	err := errorRegistry.NewWithCause(baseErr, apiErr).WithDetail("status_code", statusCode)
	if apiErr.Type != "" {
		err.WithDetail("error_type", apiErr.Type)
	}
	for k, v := range apiErr.Details {
		err.WithDetail(k, v)
	}
	if baseErr == ErrAPIQuotaExceeded {
		err.NonRetryable()
	}
	return err
}

// WrapError wraps a standard error with appropriate Mistral error code
func WrapError(err error, code *errx.ErrorCode) *errx.Error {
	if err == nil {
		return nil
	}

	var customErr *errx.Error
	if errx.As(err, &customErr) {
		return customErr
	}

	return errorRegistry.NewWithCause(code, err)
}
