package media

import (
	"errors"
	"fmt"
)

// UpstreamError wraps any transport, HTTP-status or decode failure from a
// backend call. Never retried by this package. Status is the upstream HTTP
// status when one was received, 0 for transport/decode failures.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("server API error: %v", e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError. A nil err returns nil.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Err: err}
}

// Upstreamf formats a new UpstreamError.
func Upstreamf(format string, args ...any) error {
	return &UpstreamError{Err: fmt.Errorf(format, args...)}
}

// IsUpstreamNotFound reports whether err is an upstream 404. Used where a
// missing upstream document is recorded rather than treated as a failure.
func IsUpstreamNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == 404
}

// NotFoundError means a server, collection or item does not exist.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }

// NotFound constructs a NotFoundError for the named entity.
func NotFound(what string) error { return &NotFoundError{What: what} }

// ValidationError means the caller's input is malformed or semantically invalid.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf formats a new ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError means required configuration is missing, e.g. no
// resolvable library id when creating a favourites collection.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// Configurationf formats a new ConfigurationError.
func Configurationf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// NotSupportedError means the backend kind does not implement the capability.
type NotSupportedError struct {
	Msg string
}

func (e *NotSupportedError) Error() string { return e.Msg }

// NotSupportedf formats a new NotSupportedError.
func NotSupportedf(format string, args ...any) error {
	return &NotSupportedError{Msg: fmt.Sprintf(format, args...)}
}

// StatusCode maps an error to the HTTP status the outward surface responds with.
func StatusCode(err error) int {
	var (
		notFound     *NotFoundError
		validation   *ValidationError
		notSupported *NotSupportedError
	)
	switch {
	case err == nil:
		return 200
	case errors.As(err, &notFound):
		return 404
	case errors.As(err, &validation), errors.As(err, &notSupported):
		return 400
	default:
		// UpstreamError, ConfigurationError and anything unclassified.
		return 500
	}
}
