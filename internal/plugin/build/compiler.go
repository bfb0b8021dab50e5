// Package build turns plugin source directories into loadable artifacts.
//
// A Cache decides whether a plugin needs rebuilding by comparing the
// artifact's modification time with the newest source file, and delegates
// the actual work to a Compiler. Loading the produced artifact is the job of
// a plugin runtime, not of this package.
package build

import (
	"context"
	"io"
	"path/filepath"
)

const (
	// BinDir holds artifacts inside a plugin directory. It is never scanned
	// for sources.
	BinDir = "bin"
	// LibDir holds shared library sources loaded before the plugin's own
	// sources.
	LibDir = "lib"
)

// Unit is one plugin's input to a Compiler.
type Unit struct {
	// Name is the plugin name, the base name of Dir.
	Name string
	// Dir is the absolute plugin directory.
	Dir string
	// Sources are the plugin's own source files, sorted.
	Sources []string
	// Libraries are the source files under LibDir, sorted.
	Libraries []string
}

// Rel returns path relative to the unit directory, using forward slashes.
func (u Unit) Rel(path string) string {
	rel, err := filepath.Rel(u.Dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Compiler builds a plugin artifact from its sources.
type Compiler interface {
	// SourceExt is the extension of source files, including the dot.
	SourceExt() string
	// ArtifactExt is the extension of produced artifacts, including the dot.
	ArtifactExt() string
	// Compile writes the artifact for unit to out. Source errors should be
	// reported as a *DiagnosticsError.
	Compile(ctx context.Context, unit Unit, out io.Writer) error
}

// ArtifactPath returns where the artifact for the plugin in dir lives.
func ArtifactPath(dir, ext string) string {
	return filepath.Join(dir, BinDir, filepath.Base(dir)+ext)
}
