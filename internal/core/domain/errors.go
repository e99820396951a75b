package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds raised by the server core. Use errors.Is to classify.
var (
	// ErrConfiguration marks a server misconfiguration detected at setup time.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnauthenticated is returned when a request fails API key authentication.
	ErrUnauthenticated = errors.New("request is not authenticated")

	// ErrBackendNotFound is returned when no backend can be resolved for a request.
	ErrBackendNotFound = errors.New("backend not found")

	// ErrNotImplemented is returned when a required extension hook is missing.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidRequest is returned by translators for malformed messages.
	ErrInvalidRequest = errors.New("invalid request")
)

// ConfigurationError describes an invalid registration or server setup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
}

// Is reports ErrConfiguration as a match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DuplicateAliasError is raised when an alias is already taken.
type DuplicateAliasError struct {
	Alias string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("%s: duplicate backend alias %q", ErrConfiguration, e.Alias)
}

// Is reports ErrConfiguration as a match so callers can treat every setup
// failure uniformly.
func (e *DuplicateAliasError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a configuration error with a formatted reason.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// NotImplemented wraps ErrNotImplemented with the name of the missing hook.
func NotImplemented(hook string) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, hook)
}

// StatusCode maps an error produced by the pipeline to an HTTP status code.
// Errors outside the core taxonomy are treated as upstream failures.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBackendNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// ErrorType returns a stable machine-readable name for an error's kind.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrUnauthenticated):
		return "authentication"
	case errors.Is(err, ErrBackendNotFound):
		return "not_found"
	case errors.Is(err, ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "backend"
	}
}
