package jobx

import "github.com/Abraxas-365/hybridparse/pkg/errx"

var ErrRegistry = errx.NewRegistry("JOBX")

var (
	ErrJobNotFound     = ErrRegistry.Register("JOB_NOT_FOUND", errx.TypeNotFound, 404, "Job not found")
	ErrEnqueueFailed   = ErrRegistry.Register("ENQUEUE_FAILED", errx.TypeExternal, 500, "Failed to enqueue job")
	ErrNoHandler       = ErrRegistry.Register("NO_HANDLER", errx.TypeValidation, 400, "No handler registered for job type")
	ErrInvalidJob      = ErrRegistry.Register("INVALID_JOB", errx.TypeValidation, 400, "Invalid job definition")
	ErrAlreadyRunning  = ErrRegistry.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Worker is already running")
	ErrShutdownTimeout = ErrRegistry.Register("SHUTDOWN_TIMEOUT", errx.TypeInternal, 500, "Graceful shutdown timed out")
	ErrHandlerPanic    = ErrRegistry.Register("HANDLER_PANIC", errx.TypeInternal, 500, "Job handler panicked")
)
