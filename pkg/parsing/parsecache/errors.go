package parsecache

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("PARSECACHE")

var (
	ErrStore        = ErrRegistry.Register("STORE", errx.TypeExternal, 0, "Parse cache store operation failed")
	ErrCorruptState = ErrRegistry.Register("CORRUPT_STATE", errx.TypeInternal, 0, "Cached parse state could not be decoded")
	ErrNotFound     = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, 0, "No cached parse state for fingerprint")
)
