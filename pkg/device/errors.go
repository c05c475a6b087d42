package device

import "errors"

var (
	// ErrNotFound indicates a device or user was not found, or is owned by someone else
	ErrNotFound = errors.New("device not found")

	// ErrUserNotFound indicates no user matched the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrNotConnected indicates the broker connection is down
	ErrNotConnected = errors.New("broker not connected")

	// ErrUnsupported indicates an operation is not supported by the device type
	ErrUnsupported = errors.New("operation not supported")
)
