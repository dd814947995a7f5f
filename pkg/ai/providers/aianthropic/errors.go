package aianthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/anthropics/anthropic-sdk-go"
)

var (
	errorRegistry = errx.NewRegistry("ANTHROPIC")

	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to make request to Anthropic API",
	)

	ErrAPIResponse = errorRegistry.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from Anthropic API",
	)

	ErrAPIUnauthorized = errorRegistry.Register(
		"API_UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Invalid or missing Anthropic API key",
	)

	ErrAPIRateLimit = errorRegistry.Register(
		"API_RATE_LIMIT",
		errx.TypeExternal,
		http.StatusTooManyRequests,
		"Anthropic API rate limit exceeded",
	)

	ErrAPIOverloaded = errorRegistry.Register(
		"API_OVERLOADED",
		errx.TypeExternal,
		http.StatusServiceUnavailable,
		"Anthropic API is overloaded",
	)

	ErrAPITimeout = errorRegistry.Register(
		"API_TIMEOUT",
		errx.TypeTimeout,
		http.StatusGatewayTimeout,
		"Anthropic API call timed out",
	)

	ErrModelNotFound = errorRegistry.Register(
		"MODEL_NOT_FOUND",
		errx.TypeValidation,
		http.StatusNotFound,
		"Requested model not found or not accessible",
	)

	ErrInvalidRequest = errorRegistry.Register(
		"INVALID_REQUEST",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Invalid request parameters",
	)

	ErrEmptyImage = errorRegistry.Register(
		"EMPTY_IMAGE",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Page image is empty",
	)

	ErrEmptyResponse = errorRegistry.Register(
		"EMPTY_RESPONSE",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Response contained no text blocks",
	)

	ErrMissingAPIKey = errorRegistry.Register(
		"MISSING_API_KEY",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Anthropic API key not provided",
	)
)

// ParseAnthropicError maps an Anthropic SDK error to an errx.Error
func ParseAnthropicError(err error) *errx.Error {
	if err == nil {
		return nil
	}

	var customErr *errx.Error
	if errx.As(err, &customErr) {
		return customErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorRegistry.NewWithCause(ErrAPITimeout, err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return errorRegistry.NewWithCause(statusCode(apiErr.StatusCode), err).
			WithDetail("status_code", apiErr.StatusCode)
	}

	errLower := strings.ToLower(err.Error())

	var baseErr *errx.ErrorCode
	switch {
	case strings.Contains(errLower, "unauthorized") ||
		strings.Contains(errLower, "invalid x-api-key") ||
		strings.Contains(errLower, "authentication"):
		baseErr = ErrAPIUnauthorized
	case strings.Contains(errLower, "rate limit") || strings.Contains(errLower, "rate_limit"):
		baseErr = ErrAPIRateLimit
	case strings.Contains(errLower, "overloaded"):
		baseErr = ErrAPIOverloaded
	default:
		baseErr = ErrAPIRequest
	}

	return errorRegistry.NewWithCause(baseErr, err)
}

func statusCode(status int) *errx.ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAPIUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrAPIRateLimit
	case status == 529:
		return ErrAPIOverloaded
	case status == http.StatusNotFound:
		return ErrModelNotFound
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		return ErrInvalidRequest
	case status >= 500:
		return ErrAPIResponse
	default:
		return ErrAPIRequest
	}
}
