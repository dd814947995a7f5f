package render

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("RENDER")

var (
	ErrUnsupported = ErrRegistry.Register("UNSUPPORTED", errx.TypeValidation, 0, "Document cannot be rendered to images")
	ErrPageCount   = ErrRegistry.Register("PAGE_COUNT", errx.TypeValidation, 0, "Could not determine page count")
	ErrRasterize   = ErrRegistry.Register("RASTERIZE", errx.TypeInternal, 0, "Page rasterisation failed")
	ErrRead        = ErrRegistry.Register("READ", errx.TypeInternal, 0, "Failed to read image")
	ErrDecode      = ErrRegistry.Register("DECODE", errx.TypeValidation, 0, "Unrecognised image data")
)
