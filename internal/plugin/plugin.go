package plugin

import (
	"context"

	"github.com/hagronnestad/code-deck/internal/plugin/build"
	"github.com/hagronnestad/code-deck/internal/settings"
	"github.com/hagronnestad/code-deck/internal/tile"
)

// Context is the per-plugin state shared by every tile the plugin creates.
// One Context exists per load of a plugin.
type Context struct {
	// Name is the plugin name.
	Name string
	// Path is the plugin directory, empty for static modules.
	Path string
	// Settings is the raw plugin-level settings map.
	Settings map[string]string
	// Root is the plugin's root object. Tiles type-assert it to reach
	// plugin-wide state.
	Root Root
}

// Setting returns a raw plugin-level setting.
func (c *Context) Setting(name string) (string, bool) {
	v, ok := c.Settings[name]
	return v, ok
}

// Root is the single plugin-level object of a module.
type Root interface {
	settings.Target

	// SetPath tells the root where its plugin lives.
	SetPath(path string)
	// Blueprints lists the tile kinds the plugin offers.
	Blueprints() []Blueprint
}

// LoadedHook is implemented by roots that want to run code after their
// settings are bound.
type LoadedHook interface {
	Loaded(ctx context.Context, pctx *Context) error
}

// Blueprint creates tiles of one kind.
type Blueprint interface {
	Name() string
	New(pctx *Context) tile.Tile
}

// Module is a loaded plugin artifact.
type Module interface {
	Name() string
	// Root returns the module's single root or ErrNoRoot / ErrMultipleRoots.
	Root() (Root, error)
	Close() error
}

// Runtime loads built artifacts into modules.
type Runtime interface {
	Load(ctx context.Context, artifact build.Artifact) (Module, error)
}

type blueprintFunc struct {
	name string
	fn   func(*Context) tile.Tile
}

func (b blueprintFunc) Name() string                { return b.name }
func (b blueprintFunc) New(pctx *Context) tile.Tile { return b.fn(pctx) }

// NewBlueprint returns a Blueprint that creates tiles with fn.
func NewBlueprint(name string, fn func(*Context) tile.Tile) Blueprint {
	return blueprintFunc{name: name, fn: fn}
}
