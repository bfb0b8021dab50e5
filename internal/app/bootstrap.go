package app

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/config/watcher"
	"github.com/hagronnestad/code-deck/internal/deck"
	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/plugin/build"
	"github.com/hagronnestad/code-deck/internal/plugin/lua"
	"github.com/hagronnestad/code-deck/internal/render"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *App
	initOrder []string
}

func newBootstrapper(app *App) *bootstrapper {
	return &bootstrapper{app: app, initOrder: make([]string, 0, 6)}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initStore,
		b.initPlugins,
		b.initDevice,
		b.initRenderer,
		b.initWatcher,
		b.initDeck,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

func (b *bootstrapper) initStore() error {
	a := b.app
	a.store = config.NewStore(a.opts.ConfigPath, config.WithLogger(a.logger))
	// Create the file before the watcher starts so its creation is not
	// seen as a change.
	if _, err := a.store.EnsureExists(); err != nil {
		a.logger.Warn("deck file not created", "error", err)
	}
	b.initOrder = append(b.initOrder, "store")
	return nil
}

func (b *bootstrapper) initPlugins() error {
	a := b.app
	a.cache = build.New(lua.NewCompiler(), build.WithLogger(a.logger))
	a.runtime = lua.NewRuntime(lua.WithLogger(a.logger))
	a.plugins = plugin.NewManager(
		plugin.ManagerConfig{PluginPaths: a.opts.Plugins(), MaxParallel: runtime.NumCPU()},
		a.cache,
		a.runtime,
		plugin.WithManagerLogger(a.logger),
		plugin.WithStatic(a.static...),
	)

	logger := WithComponent(a.logger, "plugins")
	a.plugins.Subscribe(func(ev plugin.ManagerEvent) {
		if ev.Error != nil {
			return
		}
		logger.Info("plugin "+ev.Type.String(), "plugin", ev.Plugin)
	})
	b.initOrder = append(b.initOrder, "plugins")
	return nil
}

func (b *bootstrapper) initDevice() error {
	a := b.app
	dev, err := a.openDev(a.opts, a.logger)
	if err != nil {
		return &InitError{Component: "device", Err: err}
	}
	a.dev = dev
	b.initOrder = append(b.initOrder, "device")
	return nil
}

func (b *bootstrapper) initRenderer() error {
	a := b.app
	a.compositor = render.NewCompositor(a.dev.Layout().KeySize)
	b.initOrder = append(b.initOrder, "renderer")
	return nil
}

// initWatcher never fails; without a watcher only SIGHUP reloads.
func (b *bootstrapper) initWatcher() error {
	a := b.app
	if err := os.MkdirAll(filepath.Dir(a.store.Path()), 0o755); err != nil {
		a.logger.Warn("hot reload disabled", "error", err)
		return nil
	}
	w, err := watcher.New(a.store.Path(),
		watcher.WithDebounce(a.opts.Debounce),
		watcher.WithLogger(a.logger),
	)
	if err != nil {
		a.logger.Warn("hot reload disabled", "error", err)
		return nil
	}
	a.watcher = w
	b.initOrder = append(b.initOrder, "watcher")
	return nil
}

func (b *bootstrapper) initDeck() error {
	a := b.app
	a.deck = deck.NewManager(a.store, a.plugins, a.compositor, a.dev,
		deck.WithLogger(a.logger),
		deck.WithBaseDir(a.opts.BaseDir()),
		deck.WithReloads(a.reloads),
		deck.WithLockSignals(a.locks),
		deck.WithSplash(),
	)
	b.initOrder = append(b.initOrder, "deck")
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	a := b.app
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "watcher":
			_ = a.watcher.Close()
			a.watcher = nil
		case "device":
			_ = a.dev.Close()
			a.dev = nil
		case "plugins":
			_ = a.plugins.Close()
			a.plugins = nil
		}
	}
}
