package ocr

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("OCR")

var (
	ErrNoProviderAvailable = ErrRegistry.Register("NO_PROVIDER_AVAILABLE", errx.TypeInternal, 503, "No OCR provider is available")
	ErrAllProvidersFailed  = ErrRegistry.Register("ALL_PROVIDERS_FAILED", errx.TypeExternal, 502, "All OCR providers failed")
	ErrEmptyImage          = ErrRegistry.Register("EMPTY_IMAGE", errx.TypeValidation, 400, "Image data is empty")
	ErrEmptyResult         = ErrRegistry.Register("EMPTY_RESULT", errx.TypeExternal, 502, "Provider returned no pages")
	ErrInvalidResponse     = ErrRegistry.Register("INVALID_RESPONSE", errx.TypeExternal, 502, "Provider returned an invalid structured response")
)
