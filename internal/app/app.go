package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/config/watcher"
	"github.com/hagronnestad/code-deck/internal/deck"
	"github.com/hagronnestad/code-deck/internal/device"
	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/plugin/build"
	"github.com/hagronnestad/code-deck/internal/plugin/lua"
	"github.com/hagronnestad/code-deck/internal/render"
)

// App is the running deck: it owns every component and routes reload and
// lock requests to the orchestrator.
type App struct {
	opts   Options
	logger *slog.Logger

	store      *config.Store
	watcher    *watcher.Watcher
	cache      *build.Cache
	runtime    *lua.Runtime
	plugins    *plugin.Manager
	dev        device.Device
	compositor *render.Compositor
	deck       *deck.Manager

	static    []plugin.Module
	openDev   func(Options, *slog.Logger) (device.Device, error)
	reloads   chan struct{}
	locks     chan deck.LockSignal
	running   atomic.Bool
	closeOnce sync.Once
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDevice uses dev instead of opening the configured backend.
func WithDevice(dev device.Device) Option {
	return func(a *App) {
		a.openDev = func(Options, *slog.Logger) (device.Device, error) { return dev, nil }
	}
}

// WithStaticPlugins registers compiled-in plugins.
func WithStaticPlugins(mods ...plugin.Module) Option {
	return func(a *App) { a.static = append(a.static, mods...) }
}

// New builds every component. Only a device that cannot be opened is
// fatal; a watcher that cannot start disables hot reload.
func New(opts Options, options ...Option) (*App, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	a := &App{
		opts:    opts,
		logger:  slog.Default(),
		openDev: openDevice,
		reloads: make(chan struct{}, 1),
		locks:   make(chan deck.LockSignal, 1),
	}
	for _, opt := range options {
		opt(a)
	}
	if err := newBootstrapper(a).bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

func openDevice(opts Options, logger *slog.Logger) (device.Device, error) {
	switch opts.Device {
	case DeviceMemory:
		return device.NewMemory(device.DefaultLayout), nil
	case DeviceTerminal:
		return device.NewTerminal(device.WithTerminalLogger(logger))
	default:
		return nil, ErrUnknownDevice
	}
}

// Run serves the deck until ctx ends, the device closes or the user quits
// the terminal device. Reloads come from the watcher and SIGHUP; SIGUSR1 and
// SIGUSR2 lock and unlock.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	if a.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.forwardChanges(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.handleSignals(ctx)
	}()

	if q, ok := a.dev.(interface{ Quit() <-chan struct{} }); ok {
		go func() {
			select {
			case <-q.Quit():
				a.logger.Info("quit requested")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	a.logger.Info("deck starting", "config", a.store.Path(), "plugins", a.opts.Plugins(), "device", a.opts.Device)
	err := a.deck.Run(ctx)
	cancel()
	if errors.Is(err, device.ErrClosed) {
		a.logger.Info("device closed")
		return nil
	}
	return err
}

func (a *App) forwardChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.watcher.Events():
			if !ok {
				return
			}
			a.logger.Info("deck file changed", "path", ev.Path)
			a.Reload()
		}
	}
}

type signalAction int

const (
	actionNone signalAction = iota
	actionReload
	actionLock
	actionUnlock
)

func (a *App) handleSignals(ctx context.Context) {
	sigs := make(chan os.Signal, 4)
	notifySignals(sigs)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			a.logger.Debug("signal received", "signal", sig)
			switch classify(sig) {
			case actionReload:
				a.Reload()
			case actionLock:
				a.Lock()
			case actionUnlock:
				a.Unlock()
			}
		}
	}
}

// Reload asks the deck to reload its configuration. Requests made while one
// is queued are merged.
func (a *App) Reload() {
	select {
	case a.reloads <- struct{}{}:
	default:
	}
}

// Lock asks the deck to show the lock screen.
func (a *App) Lock() { a.requestLock(deck.Lock) }

// Unlock asks the deck to leave the lock screen.
func (a *App) Unlock() { a.requestLock(deck.Unlock) }

func (a *App) requestLock(s deck.LockSignal) {
	select {
	case a.locks <- s:
	default:
		a.logger.Warn("lock request dropped", "signal", s)
	}
}

// Deck returns the orchestrator.
func (a *App) Deck() *deck.Manager { return a.deck }

// Device returns the device in use.
func (a *App) Device() device.Device { return a.dev }

// Plugins returns the plugin manager.
func (a *App) Plugins() *plugin.Manager { return a.plugins }

// Close stops the watcher, unloads plugins and closes the device.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		var errs []error
		if a.watcher != nil {
			errs = append(errs, a.watcher.Close())
		}
		if a.plugins != nil {
			errs = append(errs, a.plugins.Close())
		}
		if a.dev != nil {
			errs = append(errs, a.dev.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// OpenLogger builds the process logger from opts. The returned closer
// releases the log file, if any.
func OpenLogger(opts Options) (*slog.Logger, io.Closer, error) {
	cfg := DefaultLoggerConfig()
	cfg.Level = ParseLogLevel(opts.LogLevel)
	cfg.Format = LogFormat(opts.LogFormat)

	dest := opts.LogDestination()
	if dest == "" {
		return NewLogger(cfg), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	cfg.Output = f
	return NewLogger(cfg), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
