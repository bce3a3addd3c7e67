package metadata

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by backends and the file manager
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConnection      = errors.New("remote connection error")
	ErrNotFound        = errors.New("remote path not found")
	ErrUnsupported     = errors.New("operation not supported by backend")
)

// Connection wraps a transport failure so it matches both ErrConnection and the cause.
func Connection(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
}

// InvalidArgument builds an ErrInvalidArgument with context.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// ProbeError converts an Indeterminate probe into a connection error.
// It returns nil for Absent and Present.
func ProbeError(op string, p Presence, err error) error {
	if p != Indeterminate {
		return nil
	}
	if err == nil {
		err = errors.New("probe failed")
	}
	return Connection(op, err)
}
