package authx

import (
	"net/http"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("AUTH")

	ErrMissingToken = errorRegistry.Register(
		"MISSING_TOKEN",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Authorization bearer token is required",
	)

	ErrInvalidToken = errorRegistry.Register(
		"INVALID_TOKEN",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Token is invalid or expired",
	)

	ErrInsufficientScope = errorRegistry.Register(
		"INSUFFICIENT_SCOPE",
		errx.TypeAuthorization,
		http.StatusForbidden,
		"Token lacks the required scope",
	)

	ErrTokenGeneration = errorRegistry.Register(
		"TOKEN_GENERATION_FAILED",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Failed to sign token",
	)
)
