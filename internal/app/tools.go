package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/plugin"
	"github.com/hagronnestad/code-deck/internal/plugin/build"
	"github.com/hagronnestad/code-deck/internal/plugin/lua"
	"github.com/hagronnestad/code-deck/internal/render"
)

// BuildResult is the outcome of building one plugin.
type BuildResult struct {
	Plugin   string
	Dir      string
	Artifact build.Artifact
	Err      error
}

// Diagnostics returns the source errors of a failed build.
func (r BuildResult) Diagnostics() []build.Diagnostic {
	var de *build.DiagnosticsError
	if errors.As(r.Err, &de) {
		return de.Diagnostics
	}
	return nil
}

// Prebuild builds every discovered plugin in parallel, reusing fresh
// artifacts. Results are sorted by plugin name.
func Prebuild(ctx context.Context, paths []string, logger *slog.Logger) ([]BuildResult, error) {
	infos, err := plugin.NewLoader(plugin.WithPaths(paths...)).Discover()
	if err != nil {
		return nil, err
	}
	cache := build.New(lua.NewCompiler(), build.WithLogger(logger))

	results := make([]BuildResult, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, info := range infos {
		g.Go(func() error {
			art, err := cache.EnsureBuilt(gctx, info.Path)
			results[i] = BuildResult{Plugin: info.Name, Dir: info.Path, Artifact: art, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

// Build states reported by ListPlugins.
const (
	StateBuilt   = "built"
	StateStale   = "stale"
	StateUnbuilt = "unbuilt"
	StateEmpty   = "no sources"
	StateError   = "error"
)

// PluginStatus describes a discovered plugin without building it.
type PluginStatus struct {
	Name     string
	Dir      string
	State    string
	Artifact build.Artifact
	Err      error
}

// ListPlugins reports every discovered plugin and the state of its
// artifact.
func ListPlugins(paths []string) ([]PluginStatus, error) {
	infos, err := plugin.NewLoader(plugin.WithPaths(paths...)).Discover()
	if err != nil {
		return nil, err
	}
	cache := build.New(lua.NewCompiler(), build.WithLogger(NullLogger))

	out := make([]PluginStatus, 0, len(infos))
	for _, info := range infos {
		art, err := cache.Inspect(info.Path)
		st := PluginStatus{Name: info.Name, Dir: info.Path, Artifact: art, Err: err}
		switch {
		case errors.Is(err, build.ErrNoSources):
			st.State = StateEmpty
		case err != nil:
			st.State = StateError
		case art.Reused:
			st.State = StateBuilt
		case !art.BuiltAt.IsZero():
			st.State = StateStale
		default:
			st.State = StateUnbuilt
		}
		out = append(out, st)
	}
	return out, nil
}

// DeckReport is the result of checking a deck file.
type DeckReport struct {
	Deck     *config.Deck
	Warnings []string
}

// CheckDeck parses and validates the deck file at path without creating
// it. Colors are checked too. Keys naming a plugin that is not found in
// paths are reported as warnings.
func CheckDeck(path string, paths []string) (DeckReport, error) {
	format, err := config.FormatOf(path)
	if err != nil {
		return DeckReport{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DeckReport{}, err
	}
	d, err := config.Decode(format, data)
	if err != nil {
		return DeckReport{}, &config.ParseError{Path: path, Err: err}
	}

	report := DeckReport{Deck: d}
	if err := errors.Join(d.Validate(), render.CheckColors(d)); err != nil {
		return report, err
	}

	infos, err := plugin.NewLoader(plugin.WithPaths(paths...)).Discover()
	if err != nil {
		return report, err
	}
	known := make([]string, 0, len(infos))
	for _, info := range infos {
		known = append(known, info.Name)
	}

	reported := make(map[string]bool)
	for _, fk := range d.Flatten() {
		if !fk.Key.HasTile() {
			continue
		}
		name := fk.Key.Plugin
		lower := strings.ToLower(name)
		if reported[lower] || slices.ContainsFunc(known, func(k string) bool { return strings.EqualFold(k, name) }) {
			continue
		}
		reported[lower] = true
		msg := fmt.Sprintf("%s/%s key %d: plugin %q not found", fk.Profile, fk.Page, fk.Key.Index, name)
		if s := suggest(name, known); s != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		report.Warnings = append(report.Warnings, msg)
	}
	return report, nil
}

// suggest returns the known name closest to name, if it is within two
// edits.
func suggest(name string, known []string) string {
	best, bestDist := "", 3
	for _, k := range known {
		dist := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(k))
		if dist < bestDist {
			best, bestDist = k, dist
		}
	}
	return best
}
