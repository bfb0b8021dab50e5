package deck

import (
	"errors"
	"fmt"
)

var (
	// ErrReloadInProgress is returned when a reload is requested while one
	// is already running.
	ErrReloadInProgress = errors.New("reload already in progress")

	// ErrNoFrame is returned when the deck has no normal page to show.
	ErrNoFrame = errors.New("no normal profile with pages")
)

// HookError reports a tile hook that failed or panicked.
type HookError struct {
	Plugin string
	Tile   string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("tile %s/%s: %s: %v", e.Plugin, e.Tile, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
