package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/hagronnestad/code-deck/internal/plugin/build"
	"github.com/hagronnestad/code-deck/internal/settings"
)

// Handle is a loaded plugin.
type Handle struct {
	name       string
	module     Module
	root       Root
	ctx        *Context
	blueprints map[string]Blueprint
	order      []string
	artifact   build.Artifact
	loadedAt   time.Time
}

// Name returns the plugin name.
func (h *Handle) Name() string { return h.name }

// Context returns the plugin context shared by the plugin's tiles.
func (h *Handle) Context() *Context { return h.ctx }

// Root returns the plugin root.
func (h *Handle) Root() Root { return h.root }

// Artifact returns the artifact the plugin was loaded from. It is the zero
// value for static modules.
func (h *Handle) Artifact() build.Artifact { return h.artifact }

// LoadedAt returns when the plugin was loaded.
func (h *Handle) LoadedAt() time.Time { return h.loadedAt }

// Resolve returns the blueprint offered under name.
func (h *Handle) Resolve(name string) (Blueprint, bool) {
	bp, ok := h.blueprints[name]
	return bp, ok
}

// Tiles lists the offered tile names in declaration order.
func (h *Handle) Tiles() []string {
	return append([]string(nil), h.order...)
}

// LoadSpec carries the inputs of one plugin load.
type LoadSpec struct {
	Path     string
	Settings map[string]string
	Artifact build.Artifact
}

// Registry holds the loaded plugins by name.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handles: make(map[string]*Handle),
		logger:  logger.With("component", "plugins"),
	}
}

// Load runs the load sequence for mod and stores the resulting handle,
// replacing and closing any previous handle of the same name.
// On error the module is closed.
func (r *Registry) Load(ctx context.Context, mod Module, spec LoadSpec) (*Handle, error) {
	name := mod.Name()
	logger := r.logger.With("plugin", name)

	root, err := mod.Root()
	if err != nil {
		mod.Close()
		return nil, fmt.Errorf("plugin %q: %w", name, err)
	}

	for _, w := range settings.Bind(spec.Settings, root) {
		logger.Warn("plugin setting not applied", "error", w)
	}
	root.SetPath(spec.Path)

	pctx := &Context{
		Name:     name,
		Path:     spec.Path,
		Settings: maps.Clone(spec.Settings),
		Root:     root,
	}

	if hook, ok := root.(LoadedHook); ok {
		err := Recover(func() error { return hook.Loaded(ctx, pctx) })
		if err != nil {
			logger.Error("plugin loaded hook failed", "error", &HookError{Plugin: name, Hook: "loaded", Err: err})
		}
	}

	h := &Handle{
		name:       name,
		module:     mod,
		root:       root,
		ctx:        pctx,
		blueprints: make(map[string]Blueprint),
		artifact:   spec.Artifact,
		loadedAt:   time.Now(),
	}
	for _, bp := range root.Blueprints() {
		if bp == nil {
			continue
		}
		if _, dup := h.blueprints[bp.Name()]; dup {
			logger.Warn("duplicate tile name ignored", "tile", bp.Name())
			continue
		}
		h.blueprints[bp.Name()] = bp
		h.order = append(h.order, bp.Name())
	}

	r.mu.Lock()
	old := r.handles[name]
	r.handles[name] = h
	r.mu.Unlock()

	if old != nil && old.module != mod {
		if err := old.module.Close(); err != nil {
			logger.Warn("closing replaced plugin", "error", err)
		}
	}

	logger.Info("plugin loaded", "tiles", len(h.order))
	return h, nil
}

// Get returns the loaded plugin with the given name.
func (r *Registry) Get(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// List returns all loaded plugins sorted by name.
func (r *Registry) List() []*Handle {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].name < handles[j].name
	})
	return handles
}

// Names returns the loaded plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Remove unloads the named plugin and closes its module. It reports whether
// the plugin was loaded.
func (r *Registry) Remove(name string) (bool, error) {
	r.mu.Lock()
	h, ok := r.handles[name]
	delete(r.handles, name)
	r.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, h.module.Close()
}

// Close closes every loaded module and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	var errs []error
	for name, h := range handles {
		if err := h.module.Close(); err != nil {
			errs = append(errs, fmt.Errorf("plugin %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
