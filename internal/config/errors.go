package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrUnsupportedFormat indicates a deck file extension with no codec.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalid wraps every validation finding.
	ErrInvalid = errors.New("invalid configuration")
)

// ParseError reports a deck file that could not be decoded.
type ParseError struct {
	// Path is the file that failed to parse.
	Path string
	// Err is the codec error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

// Unwrap returns the codec error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError locates one problem in a deck.
type ValidationError struct {
	// Where is a readable location such as `profile "Main" page "Home" key 3`.
	Where string
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Where == "" {
		return e.Message
	}
	return e.Where + ": " + e.Message
}

// Unwrap makes every ValidationError match ErrInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}
