package aigemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("GEMINI")

	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to make request to Gemini API",
	)

	ErrAPIResponse = errorRegistry.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from Gemini API",
	)

	ErrAPIUnauthorized = errorRegistry.Register(
		"API_UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Invalid or missing Gemini credentials",
	)

	ErrAPIRateLimit = errorRegistry.Register(
		"API_RATE_LIMIT",
		errx.TypeExternal,
		http.StatusTooManyRequests,
		"Gemini API rate limit exceeded",
	)

	ErrAPITimeout = errorRegistry.Register(
		"API_TIMEOUT",
		errx.TypeTimeout,
		http.StatusGatewayTimeout,
		"Gemini API call timed out",
	)

	ErrModelNotFound = errorRegistry.Register(
		"MODEL_NOT_FOUND",
		errx.TypeValidation,
		http.StatusNotFound,
		"Requested model not found or not accessible",
	)

	ErrInvalidArgument = errorRegistry.Register(
		"INVALID_ARGUMENT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Gemini rejected the request",
	)

	ErrEmptyImage = errorRegistry.Register(
		"EMPTY_IMAGE",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Page image is empty",
	)

	ErrMissingAPIKey = errorRegistry.Register(
		"MISSING_API_KEY",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Gemini API key not provided",
	)

	ErrClientInit = errorRegistry.Register(
		"CLIENT_INIT_FAILED",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Failed to create Gemini client",
	)
)

// ParseGeminiError maps a genai error to an errx.Error. genai reports the
// HTTP code and the RPC status name in its message.
func ParseGeminiError(err error) *errx.Error {
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

	errLower := strings.ToLower(err.Error())

	var baseErr *errx.ErrorCode
	switch {
	case strings.Contains(errLower, "unauthenticated") ||
		strings.Contains(errLower, "permission_denied") ||
		strings.Contains(errLower, "api key not valid"):
		baseErr = ErrAPIUnauthorized
	case strings.Contains(errLower, "resource_exhausted") || strings.Contains(errLower, "rate limit"):
		baseErr = ErrAPIRateLimit
	case strings.Contains(errLower, "deadline_exceeded"):
		baseErr = ErrAPITimeout
	case strings.Contains(errLower, "not_found"):
		baseErr = ErrModelNotFound
	case strings.Contains(errLower, "invalid_argument") || strings.Contains(errLower, "failed_precondition"):
		baseErr = ErrInvalidArgument
	case strings.Contains(errLower, "unavailable") || strings.Contains(errLower, "internal"):
		baseErr = ErrAPIResponse
	default:
		baseErr = ErrAPIRequest
	}

	return errorRegistry.NewWithCause(baseErr, err)
}

// WrapError wraps a standard error with a Gemini error code
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
