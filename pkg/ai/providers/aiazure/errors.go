package aiazure

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/openai/openai-go/v3"
)

var (
	errorRegistry = errx.NewRegistry("AZURE_OPENAI")

	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to make request to Azure OpenAI API",
	)

	ErrAPIResponse = errorRegistry.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from Azure OpenAI API",
	)

	ErrAPIUnauthorized = errorRegistry.Register(
		"API_UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Invalid or missing Azure OpenAI credentials",
	)

	ErrAPIRateLimit = errorRegistry.Register(
		"API_RATE_LIMIT",
		errx.TypeExternal,
		http.StatusTooManyRequests,
		"Azure OpenAI API rate limit exceeded",
	)

	ErrAPITimeout = errorRegistry.Register(
		"API_TIMEOUT",
		errx.TypeTimeout,
		http.StatusGatewayTimeout,
		"Azure OpenAI API call timed out",
	)

	ErrDeploymentNotFound = errorRegistry.Register(
		"DEPLOYMENT_NOT_FOUND",
		errx.TypeValidation,
		http.StatusNotFound,
		"Deployment not found or not accessible",
	)

	ErrContentFiltered = errorRegistry.Register(
		"CONTENT_FILTERED",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Request was blocked by the content filter",
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

	ErrMissingEndpoint = errorRegistry.Register(
		"MISSING_ENDPOINT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Azure OpenAI endpoint not provided",
	)

	ErrMissingCredentials = errorRegistry.Register(
		"MISSING_CREDENTIALS",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Azure OpenAI API key or token credential not provided",
	)

	ErrMissingDeployment = errorRegistry.Register(
		"MISSING_DEPLOYMENT",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Azure OpenAI deployment not provided",
	)
)

// ParseAzureError maps an Azure OpenAI SDK error to an errx.Error
func ParseAzureError(err error) *errx.Error {
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
		var baseErr *errx.ErrorCode
		switch code := apiErr.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			baseErr = ErrAPIUnauthorized
		case code == http.StatusTooManyRequests:
			baseErr = ErrAPIRateLimit
		case code == http.StatusNotFound:
			baseErr = ErrDeploymentNotFound
		case code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "content"):
			baseErr = ErrContentFiltered
		case code == http.StatusBadRequest:
			baseErr = ErrInvalidRequest
		case code >= 500:
			baseErr = ErrAPIResponse
		default:
			baseErr = ErrAPIRequest
		}
		return errorRegistry.NewWithCause(baseErr, err).WithDetail("status_code", apiErr.StatusCode)
	}

	errLower := strings.ToLower(err.Error())

	var baseErr *errx.ErrorCode
	switch {
	case strings.Contains(errLower, "unauthorized") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "access denied"):
		baseErr = ErrAPIUnauthorized
	case strings.Contains(errLower, "rate limit") || strings.Contains(errLower, "rate_limit"):
		baseErr = ErrAPIRateLimit
	case strings.Contains(errLower, "deploymentnotfound"):
		baseErr = ErrDeploymentNotFound
	default:
		baseErr = ErrAPIRequest
	}

	return errorRegistry.NewWithCause(baseErr, err)
}
