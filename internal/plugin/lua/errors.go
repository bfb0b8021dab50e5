package lua

import "errors"

// Errors for Lua plugin operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutorClosed is returned when attempting to use a closed executor.
	ErrExecutorClosed = errors.New("lua executor is closed")

	// ErrQueueFull is returned when an asynchronous call cannot be queued.
	ErrQueueFull = errors.New("lua executor queue full")

	// ErrInvalidBundle is returned for an artifact that is not a Lua bundle.
	ErrInvalidBundle = errors.New("invalid lua bundle")

	// ErrInvalidDefinition is returned when a plugin table is malformed.
	ErrInvalidDefinition = errors.New("invalid plugin definition")
)
