package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNoRoot is returned when a module defines no plugin root.
	ErrNoRoot = errors.New("plugin defines no root")

	// ErrMultipleRoots is returned when a module defines more than one root.
	ErrMultipleRoots = errors.New("plugin defines more than one root")

	// ErrBlueprintNotFound is returned when a tile name is not offered by a plugin.
	ErrBlueprintNotFound = errors.New("tile not found in plugin")

	// ErrClosed is returned when using a closed manager or module.
	ErrClosed = errors.New("plugin system closed")
)

// HookError wraps a failure or panic raised by plugin code.
type HookError struct {
	Plugin string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %q: %s: %v", e.Plugin, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// PanicError is the error recorded when plugin code panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover converts a panic inside fn into a *PanicError.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
