package deck

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/render"
	"github.com/hagronnestad/code-deck/internal/settings"
	"github.com/hagronnestad/code-deck/internal/tile"
)

// PluginResolver returns a loaded plugin by name, building and loading it
// if needed. plugin.Manager implements it.
type PluginResolver interface {
	Acquire(ctx context.Context, name string, settings map[string]string) (*plugin.Handle, error)
}

// Binding owns the live tile of one configured key.
type Binding struct {
	id             string
	frame          Frame
	key            config.Key
	pluginSettings map[string]string
	overrides      render.Overrides
	logger         *slog.Logger

	mu     sync.Mutex
	state  State
	tile   tile.Tile
	scope  context.Context
	cancel context.CancelFunc
	err    error
}

// NewBinding prepares a binding for a flattened key. A relative key image is
// resolved against baseDir and loaded once; a missing or undecodable image
// is logged and skipped.
func NewBinding(fk config.FlatKey, pluginSettings map[string]string, baseDir string, logger *slog.Logger) *Binding {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Binding{
		id:             uuid.NewString(),
		frame:          Frame{Profile: fk.Profile, Page: fk.Page},
		key:            fk.Key,
		pluginSettings: pluginSettings,
	}
	b.logger = logger.With(
		"key", fk.Key.Index,
		"profile", fk.Profile,
		"page", fk.Page,
	)
	if fk.Key.HasTile() {
		b.logger = b.logger.With("plugin", fk.Key.Plugin, "tile", fk.Key.Tile)
	}

	var img image.Image
	if fk.Key.Image != nil && *fk.Key.Image != "" {
		path := *fk.Key.Image
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		loaded, err := render.LoadImage(path)
		if err != nil {
			b.logger.Warn("key image not loaded", "error", err)
		} else {
			img = loaded
		}
	}

	o, err := render.OverridesFromKey(fk.Key, img)
	if err != nil {
		b.logger.Warn("key color ignored", "error", err)
	}
	b.overrides = o
	return b
}

// ID returns the unique id of this binding instance.
func (b *Binding) ID() string { return b.id }

// Frame returns the page the binding belongs to.
func (b *Binding) Frame() Frame { return b.frame }

// Key returns the key configuration.
func (b *Binding) Key() config.Key { return b.key }

// Index returns the physical key index.
func (b *Binding) Index() int { return b.key.Index }

// Overrides returns the key-level render overrides.
func (b *Binding) Overrides() render.Overrides { return b.overrides }

// Visible reports whether the binding belongs to f.
func (b *Binding) Visible(f Frame) bool { return b.frame == f }

// State returns the lifecycle state.
func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the last resolution or Init failure.
func (b *Binding) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Tile returns the live tile, or nil.
func (b *Binding) Tile() tile.Tile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tile
}

// Instantiate creates the tile. Keys without a plugin get a plain label
// tile. Settings are bound and the key's text, font, font size and image
// padding are applied on top of the tile's defaults. If the plugin or tile
// cannot be resolved the binding stays unbound.
func (b *Binding) Instantiate(ctx context.Context, resolver PluginResolver) error {
	b.mu.Lock()
	if b.state != StateUnbound || b.tile != nil {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	t, err := b.newTile(ctx, resolver)
	if err != nil {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		return err
	}

	seed(t.Observable(), b.key)

	b.mu.Lock()
	b.tile = t
	b.state = StateInstantiated
	b.mu.Unlock()
	return nil
}

func (b *Binding) newTile(ctx context.Context, resolver PluginResolver) (tile.Tile, error) {
	if !b.key.HasTile() {
		return &tile.Base{}, nil
	}

	h, err := resolver.Acquire(ctx, b.key.Plugin, b.pluginSettings)
	if err != nil {
		b.logger.Error("plugin unavailable", "error", err)
		return nil, err
	}
	bp, ok := h.Resolve(b.key.Tile)
	if !ok {
		err := fmt.Errorf("%w: %s/%s", plugin.ErrBlueprintNotFound, b.key.Plugin, b.key.Tile)
		b.logger.Error("contract violation", "error", err, "offered", h.Tiles())
		return nil, err
	}

	var t tile.Tile
	err = b.run("new", func() error {
		t = bp.New(h.Context())
		if t == nil {
			return errors.New("blueprint returned no tile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, w := range settings.Bind(b.key.Settings, t) {
		b.logger.Warn("tile setting not applied", "error", w)
	}
	return t, nil
}

func seed(base *tile.Base, k config.Key) {
	if k.Text != nil {
		base.SetText(*k.Text)
	}
	if k.Font != nil {
		base.SetFont(*k.Font)
	}
	if k.FontSize != nil {
		base.SetFontSize(*k.FontSize)
	}
	if k.ImagePadding != nil {
		base.SetImagePadding(*k.ImagePadding)
	}
}

// Init runs the tile's Init hook inside a new scope derived from parent.
// Failures are logged and recorded; the binding is Initialized either way.
func (b *Binding) Init(parent context.Context) error {
	b.mu.Lock()
	if b.state != StateInstantiated {
		b.mu.Unlock()
		return nil
	}
	b.scope, b.cancel = context.WithCancel(parent)
	t, scope := b.tile, b.scope
	b.mu.Unlock()

	err := b.run("init", func() error { return t.Init(scope) })

	b.mu.Lock()
	b.state = StateInitialized
	b.err = err
	b.mu.Unlock()
	return err
}

// Activate routes the tile's change notifications to sink. Changes made
// before activation are not reported.
func (b *Binding) Activate(sink func(*Binding)) {
	b.mu.Lock()
	if b.state != StateInitialized {
		b.mu.Unlock()
		return
	}
	b.state = StateActive
	t := b.tile
	b.mu.Unlock()

	t.Observable().SetNotify(func() { sink(b) })
}

// PressDown forwards a key press to the tile.
func (b *Binding) PressDown() error {
	return b.press("press_down", tile.Tile.PressDown)
}

// PressUp forwards a key release to the tile.
func (b *Binding) PressUp() error {
	return b.press("press_up", tile.Tile.PressUp)
}

func (b *Binding) press(hook string, fn func(tile.Tile, context.Context) error) error {
	b.mu.Lock()
	if !b.state.Live() {
		b.mu.Unlock()
		return nil
	}
	t, scope := b.tile, b.scope
	b.mu.Unlock()

	return b.run(hook, func() error { return fn(t, scope) })
}

// Cancel cancels the tile's scope. It is safe to call more than once.
func (b *Binding) Cancel() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Teardown cancels the scope, then runs DeInit and waits for it. Failures
// are logged, never returned. The tile is discarded. Calling Teardown more
// than once has no further effect.
func (b *Binding) Teardown(ctx context.Context) {
	b.Cancel()

	b.mu.Lock()
	if b.state == StateDeinitialized {
		b.mu.Unlock()
		return
	}
	t := b.tile
	initialized := b.state.Live()
	b.state = StateDeinitialized
	b.mu.Unlock()

	if t == nil {
		return
	}
	t.Observable().SetNotify(nil)
	if initialized {
		_ = b.run("deinit", func() error { return t.DeInit(ctx) })
	}

	b.mu.Lock()
	b.tile = nil
	b.mu.Unlock()
}

// Display snapshots what the key should show. Without a tile it reports
// the key's own text, font, font size and image padding.
func (b *Binding) Display() tile.Display {
	b.mu.Lock()
	t := b.tile
	b.mu.Unlock()

	if t != nil {
		return t.Observable().Display()
	}
	return tile.Display{
		Text:         b.key.Text,
		Font:         b.key.Font,
		FontSize:     b.key.FontSize,
		ImagePadding: b.key.ImagePadding,
	}
}

func (b *Binding) run(hook string, fn func() error) error {
	err := plugin.Recover(fn)
	if err == nil {
		return nil
	}
	herr := &HookError{Plugin: b.key.Plugin, Tile: b.key.Tile, Hook: hook, Err: err}
	b.logger.Error("tile hook failed", "hook", hook, "error", err)
	return herr
}
