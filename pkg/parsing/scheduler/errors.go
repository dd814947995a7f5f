package scheduler

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("SCHEDULER")

var (
	ErrEmptyBatch     = ErrRegistry.Register("EMPTY_BATCH", errx.TypeValidation, 0, "No pages to recognise")
	ErrCancelled      = ErrRegistry.Register("CANCELLED", errx.TypeTimeout, 0, "OCR run cancelled before any page was produced")
	ErrAllPagesFailed = ErrRegistry.Register("ALL_PAGES_FAILED", errx.TypeExternal, 0, "Every page failed OCR")
	ErrMissingImage   = ErrRegistry.Register("MISSING_IMAGE", errx.TypeInternal, 0, "Uncached pages carry no image")
)
