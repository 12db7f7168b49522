package microwave

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current output state, e.g. changing a setpoint while output is on.
	ErrInvalidState = errors.New("operation invalid in current state")

	// ErrOutOfBounds is returned when a value lies outside the device constraints
	ErrOutOfBounds = errors.New("value out of bounds")

	// ErrUnsupported is returned for scan modes the device cannot run
	ErrUnsupported = errors.New("unsupported")

	// ErrNotActive is returned when the session has no open connection
	ErrNotActive = errors.New("session not active")

	// ErrPollTimeout is returned when the device does not confirm a command
	// within the configured poll timeout
	ErrPollTimeout = errors.New("device did not confirm in time")
)
