package settings

import (
	"errors"
	"fmt"
)

// ErrUnsupportedKind is wrapped by a CoercionError for a field whose kind
// cannot be bound.
var ErrUnsupportedKind = errors.New("unsupported setting kind")

// CoercionError reports a configured value that was not applied.
type CoercionError struct {
	Field string
	Kind  Kind
	Value string
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("setting %q (%s): cannot use %q: %v", e.Field, e.Kind, e.Value, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}
