package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBuildFailed is matched by every compilation failure.
	ErrBuildFailed = errors.New("build failed")
	// ErrNoSources is returned for a plugin directory without source files.
	ErrNoSources = errors.New("no source files")
)

// Diagnostic is a single source error.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	switch {
	case d.Line > 0 && d.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
	case d.Line > 0:
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
	default:
		return fmt.Sprintf("%s: %s", d.File, d.Message)
	}
}

// DiagnosticsError carries every diagnostic of a failed compilation.
type DiagnosticsError struct {
	Plugin      string
	Diagnostics []Diagnostic
}

func (e *DiagnosticsError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "plugin %q: %d source error(s)", e.Plugin, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		sb.WriteString("\n  ")
		sb.WriteString(d.String())
	}
	return sb.String()
}

func (e *DiagnosticsError) Unwrap() error {
	return ErrBuildFailed
}
