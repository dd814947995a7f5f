package parsecachesql

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var sqlErrors = errx.NewRegistry("PARSECACHE_SQL")

var (
	ErrOpen    = sqlErrors.Register("OPEN", errx.TypeExternal, 0, "Failed to open parse cache database")
	ErrMigrate = sqlErrors.Register("MIGRATE", errx.TypeInternal, 0, "Failed to create parse cache tables")
	ErrRead    = sqlErrors.Register("READ", errx.TypeExternal, 0, "Failed to read parse state")
	ErrWrite   = sqlErrors.Register("WRITE", errx.TypeExternal, 0, "Failed to write parse state")
	ErrMarshal = sqlErrors.Register("MARSHAL", errx.TypeInternal, 0, "Failed to encode parse state")
)
