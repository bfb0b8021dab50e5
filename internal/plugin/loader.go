package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader discovers plugin directories on the filesystem.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string
}

// Info describes a discovered plugin directory.
type Info struct {
	Name string
	Path string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Paths returns the search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover lists every plugin directory in the search paths, sorted by name.
// A name found in an earlier path shadows the same name in later paths.
// Missing search paths are skipped.
func (l *Loader) Discover() ([]Info, error) {
	seen := make(map[string]bool)
	var found []Info

	for _, root := range l.paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read plugin path %s: %w", root, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() || isHidden(entry.Name()) {
				continue
			}
			key := strings.ToLower(entry.Name())
			if seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, Info{Name: entry.Name(), Path: filepath.Join(root, entry.Name())})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Name < found[j].Name
	})
	return found, nil
}

// Find locates a plugin directory by name. Exact matches win over
// case-insensitive ones.
func (l *Loader) Find(name string) (Info, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || isHidden(name) {
		return Info{}, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}

	for _, root := range l.paths {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return Info{Name: name, Path: path}, nil
		}
	}

	found, err := l.Discover()
	if err != nil {
		return Info{}, err
	}
	for _, info := range found {
		if strings.EqualFold(info.Name, name) {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
