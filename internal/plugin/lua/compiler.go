package lua

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/hagronnestad/code-deck/internal/plugin/build"
)

// Compiler checks Lua sources and packs them into a Bundle.
type Compiler struct{}

// NewCompiler returns the Lua build strategy.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// SourceExt implements build.Compiler.
func (c *Compiler) SourceExt() string { return ".lua" }

// ArtifactExt implements build.Compiler.
func (c *Compiler) ArtifactExt() string { return ".cdpkg" }

// Compile parses every source, collecting all syntax errors, and writes the
// bundle to out when there are none. Library files come first.
func (c *Compiler) Compile(ctx context.Context, unit build.Unit, out io.Writer) error {
	b := Bundle{
		Format:  BundleFormat,
		Plugin:  unit.Name,
		BuildID: uuid.NewString(),
		BuiltAt: time.Now().UTC(),
	}

	var diags []build.Diagnostic
	add := func(path string, library bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := unit.Rel(path)
		src, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, build.Diagnostic{File: name, Message: err.Error()})
			return nil
		}
		if err := check(name, src); err != nil {
			diags = append(diags, diagnose(name, err))
			return nil
		}
		b.Files = append(b.Files, BundleFile{Name: name, Library: library, Source: string(src)})
		return nil
	}

	for _, path := range unit.Libraries {
		if err := add(path, true); err != nil {
			return err
		}
	}
	for _, path := range unit.Sources {
		if err := add(path, false); err != nil {
			return err
		}
	}

	if len(diags) > 0 {
		return &build.DiagnosticsError{Plugin: unit.Name, Diagnostics: diags}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// check parses and compiles one chunk without running it.
func check(name string, src []byte) error {
	chunk, err := parse.Parse(bytes.NewReader(src), name)
	if err != nil {
		return err
	}
	_, err = lua.Compile(chunk, name)
	return err
}

func diagnose(name string, err error) build.Diagnostic {
	d := build.Diagnostic{File: name, Message: err.Error()}

	var perr *parse.Error
	if errors.As(err, &perr) {
		d.Line = perr.Pos.Line
		d.Column = perr.Pos.Column
		d.Message = perr.Message
		if perr.Token != "" {
			d.Message = fmt.Sprintf("%s near '%s'", perr.Message, perr.Token)
		}
	}
	return d
}
