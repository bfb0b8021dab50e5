package plugin

import (
	"maps"
	"sync"

	"github.com/hagronnestad/code-deck/internal/settings"
)

// StaticModule is a plugin compiled into the binary.
type StaticModule struct {
	name string
	root Root
}

// NewStaticModule wraps root as a module named name. A nil root makes the
// module fail with ErrNoRoot.
func NewStaticModule(name string, root Root) *StaticModule {
	return &StaticModule{name: name, root: root}
}

// Name implements Module.
func (m *StaticModule) Name() string { return m.name }

// Root implements Module.
func (m *StaticModule) Root() (Root, error) {
	if m.root == nil {
		return nil, ErrNoRoot
	}
	return m.root, nil
}

// Close implements Module.
func (m *StaticModule) Close() error { return nil }

// StaticRoot is a Root with no declared settings. Embed it in a custom root
// to declare settings or add a Loaded hook.
type StaticRoot struct {
	mu         sync.RWMutex
	path       string
	raw        map[string]string
	blueprints []Blueprint
}

// NewStaticRoot returns a root offering blueprints.
func NewStaticRoot(blueprints ...Blueprint) *StaticRoot {
	return &StaticRoot{blueprints: blueprints}
}

// DescribeSettings implements settings.Target.
func (r *StaticRoot) DescribeSettings() []settings.Field { return nil }

// SetRawSettings implements settings.Target.
func (r *StaticRoot) SetRawSettings(values map[string]string) {
	r.mu.Lock()
	r.raw = values
	r.mu.Unlock()
}

// RawSettings returns the plugin-level settings bound to the root.
func (r *StaticRoot) RawSettings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.raw)
}

// SetPath implements Root.
func (r *StaticRoot) SetPath(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

// Path returns the plugin path.
func (r *StaticRoot) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Blueprints implements Root.
func (r *StaticRoot) Blueprints() []Blueprint {
	return r.blueprints
}
