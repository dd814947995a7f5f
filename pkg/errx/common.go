package errx

// Internal creates an internal server error
func Internal(message string) *Error {
	return New(message, TypeInternal)
}

// Validation creates a validation error
func Validation(message string) *Error {
	return New(message, TypeValidation)
}

func NotFound(message string) *Error {
	return New(message, TypeNotFound)
}

func Unauthorized(message string) *Error {
	return New(message, TypeAuthorization)
}

// External creates an external service error. External errors are
// retryable unless marked otherwise.
func External(message string) *Error {
	return New(message, TypeExternal)
}

func Timeout(message string) *Error {
	return New(message, TypeTimeout)
}
