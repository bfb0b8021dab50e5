package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hagronnestad/code-deck/internal/plugin/build"
)

// Manager resolves plugins by name for the deck.
// It handles discovery, building, loading and replacement of plugins.
type Manager struct {
	mu sync.RWMutex

	// Loader for plugin discovery
	loader *Loader

	cache    *build.Cache
	runtime  Runtime
	registry *Registry
	logger   *slog.Logger

	// Compiled-in plugins by name
	static map[string]Module

	// Load failures remembered per artifact
	failures map[string]loadFailure

	// Settings each loaded plugin was bound with
	bound map[string]map[string]string

	group singleflight.Group

	// Event handlers (protected by mu)
	eventHandlers []EventHandler

	closed bool

	config ManagerConfig
}

type loadFailure struct {
	builtAt time.Time
	err     error
}

// ManagerConfig configures the plugin manager.
type ManagerConfig struct {
	// PluginPaths are directories to search for plugins
	PluginPaths []string

	// MaxParallel is the maximum number of parallel builds in LoadAll
	MaxParallel int
}

// DefaultManagerConfig returns sensible default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PluginPaths: []string{"plugins"},
		MaxParallel: runtime.NumCPU(),
	}
}

// EventHandler handles plugin manager events.
// Handlers must be non-blocking and should not call back into the Manager
// to avoid deadlocks. Panics in handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginLoaded is emitted when a plugin is loaded for the first time.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginReloaded is emitted when a loaded plugin is replaced.
	EventPluginReloaded
	// EventPluginError is emitted when a plugin fails to build or load.
	EventPluginError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginReloaded:
		return "reloaded"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStatic registers compiled-in plugin modules. They shadow plugin
// directories of the same name.
func WithStatic(mods ...Module) ManagerOption {
	return func(m *Manager) {
		for _, mod := range mods {
			m.static[mod.Name()] = mod
		}
	}
}

// NewManager creates a new plugin manager.
func NewManager(config ManagerConfig, cache *build.Cache, rt Runtime, opts ...ManagerOption) *Manager {
	if config.MaxParallel <= 0 {
		config.MaxParallel = runtime.NumCPU()
	}
	m := &Manager{
		loader:   NewLoader(WithPaths(config.PluginPaths...)),
		cache:    cache,
		runtime:  rt,
		logger:   slog.Default(),
		static:   make(map[string]Module),
		failures: make(map[string]loadFailure),
		bound:    make(map[string]map[string]string),
		config:   config,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registry = NewRegistry(m.logger)
	m.logger = m.logger.With("component", "plugins")
	return m
}

// Registry returns the registry of loaded plugins.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Discover lists the available plugin names, static modules included.
func (m *Manager) Discover() ([]Info, error) {
	found, err := m.loader.Discover()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(found)+len(m.static))
	for name := range m.static {
		infos = append(infos, Info{Name: name})
	}
	for _, info := range found {
		if _, ok := m.static[info.Name]; !ok {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// Acquire returns the loaded plugin named name, building and loading it on
// first use. A plugin whose artifact was rebuilt or whose settings changed
// since it was loaded is replaced with a fresh load.
//
// Concurrent calls for the same name share one resolution.
func (m *Manager) Acquire(ctx context.Context, name string, settings map[string]string) (*Handle, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	v, err, _ := m.group.Do(name, func() (any, error) {
		return m.acquire(ctx, name, settings)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (m *Manager) acquire(ctx context.Context, name string, settings map[string]string) (*Handle, error) {
	m.mu.RLock()
	mod, static := m.static[name]
	m.mu.RUnlock()

	if static {
		if h, ok := m.current(name, settings, build.Artifact{}); ok {
			return h, nil
		}
		return m.load(ctx, mod, LoadSpec{Settings: settings})
	}

	info, err := m.loader.Find(name)
	if err != nil {
		return nil, err
	}

	art, err := m.cache.EnsureBuilt(ctx, info.Path)
	if err != nil {
		m.emit(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return nil, err
	}

	if h, ok := m.current(name, settings, art); ok {
		return h, nil
	}

	m.mu.RLock()
	failed, seen := m.failures[name]
	m.mu.RUnlock()
	if seen && failed.builtAt.Equal(art.BuiltAt) {
		return nil, failed.err
	}

	mod, err = m.runtime.Load(ctx, art)
	if err != nil {
		err = fmt.Errorf("load plugin %q: %w", name, err)
		m.remember(name, art, err)
		m.emit(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return nil, err
	}

	h, err := m.load(ctx, mod, LoadSpec{Path: info.Path, Settings: settings, Artifact: art})
	if err != nil {
		m.remember(name, art, err)
		return nil, err
	}
	return h, nil
}

// current returns the loaded handle if it still matches art and settings.
func (m *Manager) current(name string, settings map[string]string, art build.Artifact) (*Handle, bool) {
	h, ok := m.registry.Get(name)
	if !ok {
		return nil, false
	}

	m.mu.RLock()
	bound := m.bound[name]
	m.mu.RUnlock()

	if !maps.Equal(bound, settings) {
		return nil, false
	}
	if h.artifact.Path != art.Path || !h.artifact.BuiltAt.Equal(art.BuiltAt) {
		return nil, false
	}
	return h, true
}

func (m *Manager) load(ctx context.Context, mod Module, spec LoadSpec) (*Handle, error) {
	_, replacing := m.registry.Get(mod.Name())

	h, err := m.registry.Load(ctx, mod, spec)
	if err != nil {
		m.emit(ManagerEvent{Type: EventPluginError, Plugin: mod.Name(), Error: err})
		return nil, err
	}

	m.mu.Lock()
	m.bound[mod.Name()] = maps.Clone(spec.Settings)
	delete(m.failures, mod.Name())
	m.mu.Unlock()

	if replacing {
		m.emit(ManagerEvent{Type: EventPluginReloaded, Plugin: mod.Name()})
	} else {
		m.emit(ManagerEvent{Type: EventPluginLoaded, Plugin: mod.Name()})
	}
	return h, nil
}

func (m *Manager) remember(name string, art build.Artifact, err error) {
	m.mu.Lock()
	m.failures[name] = loadFailure{builtAt: art.BuiltAt, err: err}
	m.mu.Unlock()
	m.logger.Error("plugin load failed", "plugin", name, "error", err)
}

// LoadAll builds and loads every discovered plugin in parallel. settingsFor
// supplies plugin-level settings and may be nil. Failures do not stop other
// plugins; they are joined into the returned error.
func (m *Manager) LoadAll(ctx context.Context, settingsFor func(name string) map[string]string) error {
	infos, err := m.Discover()
	if err != nil {
		return err
	}

	var (
		errMu sync.Mutex
		errs  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MaxParallel)
	for _, info := range infos {
		g.Go(func() error {
			var settings map[string]string
			if settingsFor != nil {
				settings = settingsFor(info.Name)
			}
			if _, err := m.Acquire(gctx, info.Name, settings); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Subscribe registers an event handler.
func (m *Manager) Subscribe(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventHandlers = append(m.eventHandlers, handler)
}

// emit sends an event to all handlers.
// Handlers are called outside the lock. Panics are recovered.
func (m *Manager) emit(event ManagerEvent) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				_ = recover()
			}()
			handler(event)
		}()
	}
}

// Close closes every loaded plugin. Acquire fails afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.registry.Close()
}
