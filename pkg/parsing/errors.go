package parsing

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("PARSING")

var (
	ErrInvalidRequest = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, 400, "Invalid parse request")
	ErrSourceNotFound = ErrRegistry.Register("SOURCE_NOT_FOUND", errx.TypeNotFound, 404, "Document not found")
	ErrSource         = ErrRegistry.Register("SOURCE", errx.TypeInternal, 500, "Failed to read document")
	ErrOCRUnsupported = ErrRegistry.Register("OCR_UNSUPPORTED", errx.TypeValidation, 422, "OCR supports PDF and image inputs only")
	ErrRender         = ErrRegistry.Register("RENDER_FAILED", errx.TypeInternal, 500, "Document could not be rendered to page images")
)
