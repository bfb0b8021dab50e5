package lua

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// BundleFormat identifies the artifact layout written by Compiler.
const BundleFormat = "codedeck-lua/1"

// Bundle is a built Lua plugin: every checked source in load order.
type Bundle struct {
	Format  string       `json:"format"`
	Plugin  string       `json:"plugin"`
	BuildID string       `json:"buildId"`
	BuiltAt time.Time    `json:"builtAt"`
	Files   []BundleFile `json:"files"`
}

// BundleFile is one source inside a bundle.
type BundleFile struct {
	Name    string `json:"name"`
	Library bool   `json:"library,omitempty"`
	Source  string `json:"source"`
}

// ReadBundle reads and validates a bundle artifact.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidBundle, path, err)
	}
	if b.Format != BundleFormat {
		return nil, fmt.Errorf("%w: %s: format %q", ErrInvalidBundle, path, b.Format)
	}
	return &b, nil
}
