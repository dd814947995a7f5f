package errx

import (
	"context"
	"errors"
)

const detailRetryable = "retryable"

// Retryable marks the error as safe to retry against the same backend.
func (e *Error) Retryable() *Error {
	return e.WithDetail(detailRetryable, true)
}

// NonRetryable marks the error as permanent for the backend that produced it.
func (e *Error) NonRetryable() *Error {
	return e.WithDetail(detailRetryable, false)
}

// IsRetryable reports whether a failed call may be attempted again.
//
// The outermost explicit "retryable" detail wins. Without one, external and
// timeout errors are retryable; validation, authorization and not-found
// errors are not. Caller cancellation is never retryable, plain errors are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var fallback *bool
	for cur := err; cur != nil; {
		var e *Error
		if !errors.As(cur, &e) {
			break
		}
		if v, ok := e.Details[detailRetryable].(bool); ok {
			return v
		}
		if fallback == nil {
			v := typeRetryable(e.Type)
			fallback = &v
		}
		cur = e.Err
	}
	if fallback != nil {
		return *fallback
	}
	return true
}

func typeRetryable(t Type) bool {
	switch t {
	case TypeValidation, TypeAuthorization, TypeNotFound, TypeConflict, TypeBusiness:
		return false
	default:
		return true
	}
}
