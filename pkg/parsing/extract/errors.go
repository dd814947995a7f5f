package extract

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("EXTRACT")

var (
	ErrUnsupportedFormat = ErrRegistry.Register("UNSUPPORTED_FORMAT", errx.TypeValidation, 0, "No direct extractor for this format")
	ErrRead              = ErrRegistry.Register("READ", errx.TypeInternal, 0, "Failed to read document")
	ErrMalformed         = ErrRegistry.Register("MALFORMED", errx.TypeValidation, 0, "Document structure could not be parsed")
)
