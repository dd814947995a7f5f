package parsecacheredis

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var redisErrors = errx.NewRegistry("PARSECACHE_REDIS")

var (
	ErrRead    = redisErrors.Register("READ", errx.TypeExternal, 0, "Failed to read parse state from Redis")
	ErrWrite   = redisErrors.Register("WRITE", errx.TypeExternal, 0, "Failed to write parse state to Redis")
	ErrMarshal = redisErrors.Register("MARSHAL", errx.TypeInternal, 0, "Failed to encode parse state")
)
