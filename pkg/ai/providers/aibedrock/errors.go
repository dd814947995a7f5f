package aibedrock

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var (
	errorRegistry = errx.NewRegistry("BEDROCK")

	ErrAPIRequest = errorRegistry.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to make request to Bedrock",
	)

	ErrAPIResponse = errorRegistry.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from Bedrock",
	)

	ErrAPIUnauthorized = errorRegistry.Register(
		"API_UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"AWS credentials rejected or model access not granted",
	)

	ErrAPIRateLimit = errorRegistry.Register(
		"API_RATE_LIMIT",
		errx.TypeExternal,
		http.StatusTooManyRequests,
		"Bedrock request throttled",
	)

	ErrAPITimeout = errorRegistry.Register(
		"API_TIMEOUT",
		errx.TypeTimeout,
		http.StatusGatewayTimeout,
		"Bedrock model timed out",
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
		"Bedrock rejected the request",
	)

	ErrEmptyImage = errorRegistry.Register(
		"EMPTY_IMAGE",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Page image is empty",
	)

	ErrAWSConfig = errorRegistry.Register(
		"MISSING_CONFIG",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Failed to load AWS configuration",
	)
)

// ParseBedrockError maps a Bedrock runtime error to an errx.Error
func ParseBedrockError(err error) *errx.Error {
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

	var (
		throttled   *types.ThrottlingException
		denied      *types.AccessDeniedException
		invalid     *types.ValidationException
		notFound    *types.ResourceNotFoundException
		timeout     *types.ModelTimeoutException
		unavailable *types.ServiceUnavailableException
		internal    *types.InternalServerException
	)
	switch {
	case errors.As(err, &throttled):
		return errorRegistry.NewWithCause(ErrAPIRateLimit, err)
	case errors.As(err, &denied):
		return errorRegistry.NewWithCause(ErrAPIUnauthorized, err)
	case errors.As(err, &invalid):
		return errorRegistry.NewWithCause(ErrInvalidRequest, err)
	case errors.As(err, &notFound):
		return errorRegistry.NewWithCause(ErrModelNotFound, err)
	case errors.As(err, &timeout):
		return errorRegistry.NewWithCause(ErrAPITimeout, err)
	case errors.As(err, &unavailable), errors.As(err, &internal):
		return errorRegistry.NewWithCause(ErrAPIResponse, err)
	}

	errLower := strings.ToLower(err.Error())

	var baseErr *errx.ErrorCode
	switch {
	case strings.Contains(errLower, "accessdenied") ||
		strings.Contains(errLower, "access denied") ||
		strings.Contains(errLower, "credentials"):
		baseErr = ErrAPIUnauthorized
	case strings.Contains(errLower, "throttl"):
		baseErr = ErrAPIRateLimit
	case strings.Contains(errLower, "validation"):
		baseErr = ErrInvalidRequest
	default:
		baseErr = ErrAPIRequest
	}

	return errorRegistry.NewWithCause(baseErr, err)
}

// WrapError wraps a standard error with a Bedrock error code
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
