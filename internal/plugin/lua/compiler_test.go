package lua

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagronnestad/code-deck/internal/plugin/build"
)

func TestCompilerBundlesLibrariesFirst(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Clock")
	writeFiles(t, dir, map[string]string{
		"init.lua":     `codedeck.plugin { tiles = {} }`,
		"lib/time.lua": `timefmt = {}`,
	})
	unit := build.Unit{
		Name:      "Clock",
		Dir:       dir,
		Sources:   []string{filepath.Join(dir, "init.lua")},
		Libraries: []string{filepath.Join(dir, "lib", "time.lua")},
	}

	var out bytes.Buffer
	require.NoError(t, NewCompiler().Compile(t.Context(), unit, &out))

	art := filepath.Join(t.TempDir(), "Clock.cdpkg")
	writeFiles(t, filepath.Dir(art), map[string]string{filepath.Base(art): out.String()})
	b, err := ReadBundle(art)
	require.NoError(t, err)

	assert.Equal(t, "Clock", b.Plugin)
	assert.NotEmpty(t, b.BuildID)
	require.Len(t, b.Files, 2)
	assert.Equal(t, "lib/time.lua", b.Files[0].Name)
	assert.True(t, b.Files[0].Library)
	assert.Equal(t, "init.lua", b.Files[1].Name)
}

func TestCompilerReportsEverySyntaxError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Broken")
	writeFiles(t, dir, map[string]string{
		"a.lua": "local ok = 1\nlocal x = = 2\n",
		"b.lua": "function f(\n",
		"c.lua": "return 1\n",
	})
	unit := build.Unit{
		Name: "Broken",
		Dir:  dir,
		Sources: []string{
			filepath.Join(dir, "a.lua"),
			filepath.Join(dir, "b.lua"),
			filepath.Join(dir, "c.lua"),
		},
	}

	var out bytes.Buffer
	err := NewCompiler().Compile(t.Context(), unit, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, build.ErrBuildFailed)
	assert.Zero(t, out.Len())

	var diags *build.DiagnosticsError
	require.True(t, errors.As(err, &diags))
	require.Len(t, diags.Diagnostics, 2)
	assert.Equal(t, "a.lua", diags.Diagnostics[0].File)
	assert.Equal(t, 2, diags.Diagnostics[0].Line)
	assert.Equal(t, "b.lua", diags.Diagnostics[1].File)
}

func TestReadBundleRejectsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"junk.cdpkg":  "not json",
		"other.cdpkg": `{"format":"something-else"}`,
	})

	_, err := ReadBundle(filepath.Join(dir, "junk.cdpkg"))
	assert.ErrorIs(t, err, ErrInvalidBundle)
	_, err = ReadBundle(filepath.Join(dir, "other.cdpkg"))
	assert.ErrorIs(t, err, ErrInvalidBundle)
}
