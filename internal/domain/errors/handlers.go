package errors

import (
	"account/internal/errors"
)

// Resolve finds the AppError in err's chain.
// Errors without one resolve to ErrInternalError and ok is false.
func Resolve(err error) (appErr AppError, ok bool) {
	if err == nil {
		return nil, false
	}

	if errors.As(err, &appErr) {
		return appErr, true
	}

	return ErrInternalError, false
}

// IsClientError reports whether err resolves to a 4xx AppError.
func IsClientError(err error) bool {
	appErr, ok := Resolve(err)

	return ok && appErr.HTTPCode() >= 400 && appErr.HTTPCode() < 500
}
