package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Artifact describes a built plugin.
type Artifact struct {
	// Plugin is the plugin name.
	Plugin string
	// Dir is the absolute plugin directory.
	Dir string
	// Path is the artifact file.
	Path string
	// BuiltAt is the artifact's modification time. It changes only when
	// the artifact is rebuilt.
	BuiltAt time.Time
	// SourceTime is the newest source modification time seen.
	SourceTime time.Time
	// Reused is true when the existing artifact was fresh.
	Reused bool
}

// Stats counts cache outcomes.
type Stats struct {
	Builds   int64
	Reuses   int64
	Failures int64
}

type failure struct {
	sourceTime time.Time
	err        error
}

// Cache builds plugins on demand and reuses fresh artifacts.
//
// Concurrent EnsureBuilt calls for the same directory share one build.
// A failed build is remembered against the newest source time and is not
// retried until a source changes.
type Cache struct {
	compiler Compiler
	logger   *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	failures map[string]failure

	builds atomic.Int64
	reuses atomic.Int64
	failed atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for build progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache backed by compiler.
func New(compiler Compiler, opts ...Option) *Cache {
	c := &Cache{
		compiler: compiler,
		logger:   slog.Default(),
		failures: make(map[string]failure),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "build")
	return c
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Builds:   c.builds.Load(),
		Reuses:   c.reuses.Load(),
		Failures: c.failed.Load(),
	}
}

// Compiler returns the compiler the cache builds with.
func (c *Cache) Compiler() Compiler {
	return c.compiler
}

// EnsureBuilt returns a fresh artifact for the plugin in dir, compiling it
// if any source is newer than the existing artifact.
func (c *Cache) EnsureBuilt(ctx context.Context, dir string) (Artifact, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Artifact{}, fmt.Errorf("resolve plugin dir: %w", err)
	}

	v, err, _ := c.group.Do(abs, func() (any, error) {
		return c.ensure(ctx, abs)
	})
	if err != nil {
		return Artifact{}, err
	}
	return v.(Artifact), nil
}

// Inspect reports the artifact of the plugin in dir without building it.
// Reused is true when the artifact exists and is newer than every source;
// BuiltAt is zero when there is no artifact. A remembered build failure for
// the current sources is returned as the error.
func (c *Cache) Inspect(dir string) (Artifact, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Artifact{}, fmt.Errorf("resolve plugin dir: %w", err)
	}
	unit, latest, err := c.scan(abs)
	if err != nil {
		return Artifact{}, err
	}
	art := Artifact{
		Plugin:     unit.Name,
		Dir:        abs,
		Path:       ArtifactPath(abs, c.compiler.ArtifactExt()),
		SourceTime: latest,
	}
	if len(unit.Sources) == 0 && len(unit.Libraries) == 0 {
		return art, fmt.Errorf("plugin %q: %w", unit.Name, ErrNoSources)
	}

	c.mu.Lock()
	f, failed := c.failures[abs]
	c.mu.Unlock()
	if failed && f.sourceTime.Equal(latest) {
		return art, f.err
	}

	if info, err := os.Stat(art.Path); err == nil {
		art.BuiltAt = info.ModTime()
		art.Reused = fresh(unit, art.Path, info.ModTime(), latest)
	}
	return art, nil
}

func (c *Cache) ensure(ctx context.Context, dir string) (Artifact, error) {
	unit, latest, err := c.scan(dir)
	if err != nil {
		return Artifact{}, err
	}
	if len(unit.Sources) == 0 && len(unit.Libraries) == 0 {
		return Artifact{}, fmt.Errorf("plugin %q: %w", unit.Name, ErrNoSources)
	}

	art := Artifact{
		Plugin:     unit.Name,
		Dir:        dir,
		Path:       ArtifactPath(dir, c.compiler.ArtifactExt()),
		SourceTime: latest,
	}

	if info, err := os.Stat(art.Path); err == nil && fresh(unit, art.Path, info.ModTime(), latest) {
		c.reuses.Add(1)
		art.BuiltAt = info.ModTime()
		art.Reused = true
		return art, nil
	}

	c.mu.Lock()
	f, failed := c.failures[dir]
	c.mu.Unlock()
	if failed && f.sourceTime.Equal(latest) {
		return Artifact{}, f.err
	}

	start := time.Now()
	c.logger.Info("building plugin", "plugin", unit.Name, "sources", len(unit.Sources)+len(unit.Libraries))

	if err := c.compile(ctx, unit, art.Path); err != nil {
		if ctx.Err() != nil {
			return Artifact{}, err
		}
		c.failed.Add(1)
		c.mu.Lock()
		c.failures[dir] = failure{sourceTime: latest, err: err}
		c.mu.Unlock()
		c.logger.Error("plugin build failed", "plugin", unit.Name, "error", err)
		return Artifact{}, err
	}

	c.mu.Lock()
	delete(c.failures, dir)
	c.mu.Unlock()
	c.builds.Add(1)

	info, err := os.Stat(art.Path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}
	if sum, err := fingerprint(unit); err == nil {
		if err := os.WriteFile(sumPath(art.Path), []byte(sum), 0o644); err != nil {
			c.logger.Warn("writing source fingerprint", "plugin", unit.Name, "error", err)
		}
	}

	art.BuiltAt = info.ModTime()
	c.logger.Info("plugin built", "plugin", unit.Name, "artifact", art.Path, "duration", time.Since(start))
	return art, nil
}

func (c *Cache) compile(ctx context.Context, unit Unit, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("plugin %q: %w: %w", unit.Name, ErrBuildFailed, err)
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("plugin %q: %w: %w", unit.Name, ErrBuildFailed, err)
	}

	cerr := c.compiler.Compile(ctx, unit, out)
	if err := out.Close(); cerr == nil {
		cerr = err
	}
	if cerr == nil {
		cerr = os.Rename(tmp, path)
	}
	if cerr != nil {
		os.Remove(tmp)
		os.Remove(path)
		os.Remove(sumPath(path))
		if errors.Is(cerr, ErrBuildFailed) || ctx.Err() != nil {
			return cerr
		}
		return fmt.Errorf("plugin %q: %w: %w", unit.Name, ErrBuildFailed, cerr)
	}
	return nil
}

// scan collects the plugin's sources and the newest modification time.
func (c *Cache) scan(dir string) (Unit, time.Time, error) {
	unit := Unit{Name: filepath.Base(dir), Dir: dir}
	ext := c.compiler.SourceExt()
	bin := filepath.Join(dir, BinDir)
	lib := filepath.Join(dir, LibDir) + string(filepath.Separator)

	var latest time.Time
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == bin {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}

		if strings.HasPrefix(path, lib) {
			unit.Libraries = append(unit.Libraries, path)
		} else {
			unit.Sources = append(unit.Sources, path)
		}
		return nil
	})
	if err != nil {
		return Unit{}, time.Time{}, fmt.Errorf("scan plugin %q: %w", unit.Name, err)
	}
	return unit, latest, nil
}

// fresh reports whether the artifact can be reused. An artifact newer than
// every source is fresh. Otherwise, which happens when a source was saved in
// the same clock tick as the build or carries a future timestamp, the
// fingerprint stored beside the artifact must match the current sources.
func fresh(unit Unit, artifact string, modTime, latest time.Time) bool {
	if modTime.After(latest) {
		return true
	}
	want, err := os.ReadFile(sumPath(artifact))
	if err != nil {
		return false
	}
	got, err := fingerprint(unit)
	return err == nil && bytes.Equal(want, []byte(got))
}

func sumPath(artifact string) string {
	return artifact + ".sum"
}

// fingerprint hashes the relative path and content of every source.
func fingerprint(unit Unit) (string, error) {
	h := sha256.New()
	for _, path := range append(slices.Clone(unit.Libraries), unit.Sources...) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%d\x00", unit.Rel(path), len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
