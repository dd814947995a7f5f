package jobxredis

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("JOBX_REDIS")

var (
	ErrEnqueue   = ErrRegistry.Register("ENQUEUE", errx.TypeExternal, 500, "Redis enqueue failed")
	ErrDequeue   = ErrRegistry.Register("DEQUEUE", errx.TypeExternal, 500, "Redis dequeue failed")
	ErrGetJob    = ErrRegistry.Register("GET_JOB", errx.TypeExternal, 500, "Redis get job failed")
	ErrUpdate    = ErrRegistry.Register("UPDATE", errx.TypeExternal, 500, "Redis job update failed")
	ErrRetry     = ErrRegistry.Register("RETRY", errx.TypeExternal, 500, "Redis retry failed")
	ErrPromote   = ErrRegistry.Register("PROMOTE", errx.TypeExternal, 500, "Redis promote failed")
	ErrMarshal   = ErrRegistry.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal job data")
	ErrUnmarshal = ErrRegistry.Register("UNMARSHAL", errx.TypeInternal, 500, "Failed to unmarshal job data")
)
