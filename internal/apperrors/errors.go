// Package apperrors defines the error taxonomy shared by services and
// handlers. Services return errors wrapping one of the sentinel kinds;
// handlers translate the kind into an HTTP status.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service error")
	ErrUnavailable     = errors.New("service unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Validationf rejects malformed or unsupported input before any mutation.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf marks a missing withdrawal, account, wallet, asset config or endpoint.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf marks a rejected mutation that left state unchanged.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Externalf marks an unreachable endpoint or a failed on-chain call.
func Externalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrExternalService, fmt.Sprintf(format, args...))
}

// Unavailablef marks the absence of any working chain endpoint.
func Unavailablef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

// Unauthorizedf marks a failed authentication check.
func Unauthorizedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExternalService):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
