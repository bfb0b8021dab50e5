// Package tile defines the contract between the deck and a key's plugin
// behavior.
//
// A Tile receives lifecycle hooks from the deck and exposes its visual state
// through an embedded Base. Every mutation of that state notifies the deck,
// which re-renders the key if it is visible.
package tile

import (
	"context"

	"github.com/hagronnestad/code-deck/internal/settings"
)

// Tile is the runtime behavior bound to a key.
//
// Init runs once after settings are bound, with a scope that is cancelled
// when the tile leaves service. Long-running work started from Init must
// observe that scope. PressDown and PressUp receive the same scope.
// DeInit runs once, after the scope is cancelled.
type Tile interface {
	settings.Target

	Init(ctx context.Context) error
	PressDown(ctx context.Context) error
	PressUp(ctx context.Context) error
	DeInit(ctx context.Context) error

	// Observable returns the tile's visual state.
	Observable() *Base
}
