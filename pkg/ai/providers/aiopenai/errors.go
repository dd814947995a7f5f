package aiopenai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/openai/openai-go/v3"
)

var (
	errorRegistry = errx.NewRegistry("OPENAI")

	// API Errors
	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to make request to OpenAI API",
	)

	ErrAPIResponse = errorRegistry.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from OpenAI API",
	)

	ErrAPIUnauthorized = errorRegistry.Register(
		"API_UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Invalid or missing OpenAI API key",
	)

	ErrAPIRateLimit = errorRegistry.Register(
		"API_RATE_LIMIT",
		errx.TypeExternal,
		http.StatusTooManyRequests,
		"OpenAI API rate limit exceeded",
	)

	ErrAPIQuotaExceeded = errorRegistry.Register(
		"API_QUOTA_EXCEEDED",
		errx.TypeExternal,
		http.StatusForbidden,
		"OpenAI API quota exceeded",
	)

	ErrAPITimeout = errorRegistry.Register(
		"API_TIMEOUT",
		errx.TypeTimeout,
		http.StatusGatewayTimeout,
		"OpenAI API call timed out",
	)

	ErrModelNotFound = errorRegistry.Register(
		"MODEL_NOT_FOUND",
		errx.TypeValidation,
		http.StatusNotFound,
		"Requested model not found or not accessible",
	)

	ErrContextLengthExceeded = errorRegistry.Register(
		"CONTEXT_LENGTH_EXCEEDED",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Image and prompt exceed the model context",
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

	ErrNoChoicesInResponse = errorRegistry.Register(
		"NO_CHOICES_IN_RESPONSE",
		errx.TypeExternal,
		http.StatusBadGateway,
		"No choices returned in API response",
	)

	ErrMissingAPIKey = errorRegistry.Register(
		"MISSING_API_KEY",
		errx.TypeValidation,
		http.StatusBadRequest,
		"OpenAI API key not provided",
	)
)

// ParseOpenAIError maps an SDK or transport error onto the registry.
// Rate limits, timeouts and 5xx stay retryable; auth, quota and bad
// requests do not.
func ParseOpenAIError(err error) *errx.Error {
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

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, apiErr.Message, err)
	}

	errLower := strings.ToLower(err.Error())
	var baseErr *errx.ErrorCode
	switch {
	case strings.Contains(errLower, "unauthorized"),
		strings.Contains(errLower, "invalid api key"),
		strings.Contains(errLower, "incorrect api key"):
		baseErr = ErrAPIUnauthorized
	case strings.Contains(errLower, "rate limit"), strings.Contains(errLower, "rate_limit"):
		baseErr = ErrAPIRateLimit
	case strings.Contains(errLower, "insufficient_quota"):
		return errorRegistry.NewWithCause(ErrAPIQuotaExceeded, err).NonRetryable()
	case strings.Contains(errLower, "model") && strings.Contains(errLower, "not found"):
		baseErr = ErrModelNotFound
	default:
		baseErr = ErrAPIRequest
	}
	return errorRegistry.NewWithCause(baseErr, err)
}

func classifyStatus(status int, message string, cause error) *errx.Error {
	msgLower := strings.ToLower(message)

	var baseErr *errx.ErrorCode
	switch status {
	case http.StatusUnauthorized:
		baseErr = ErrAPIUnauthorized
	case http.StatusForbidden:
		if strings.Contains(msgLower, "quota") {
			return errorRegistry.NewWithCause(ErrAPIQuotaExceeded, cause).
				WithDetail("status_code", status).
				NonRetryable()
		}
		baseErr = ErrAPIUnauthorized
	case http.StatusTooManyRequests:
		if strings.Contains(msgLower, "quota") {
			return errorRegistry.NewWithCause(ErrAPIQuotaExceeded, cause).
				WithDetail("status_code", status).
				NonRetryable()
		}
		baseErr = ErrAPIRateLimit
	case http.StatusNotFound:
		if strings.Contains(msgLower, "model") {
			baseErr = ErrModelNotFound
		} else {
			baseErr = ErrAPIRequest
		}
	case http.StatusBadRequest:
		if strings.Contains(msgLower, "context") {
			baseErr = ErrContextLengthExceeded
		} else {
			baseErr = ErrInvalidRequest
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		baseErr = ErrAPITimeout
	default:
		if status >= 500 {
			baseErr = ErrAPIResponse
		} else {
			baseErr = ErrAPIRequest
		}
	}

	return errorRegistry.NewWithCause(baseErr, cause).WithDetail("status_code", status)
}
