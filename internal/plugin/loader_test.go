package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDiscover(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	for _, dir := range []string{
		filepath.Join(first, "Counter"),
		filepath.Join(first, ".git"),
		filepath.Join(first, "_disabled"),
		filepath.Join(second, "Clock"),
		filepath.Join(second, "counter"),
	} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(first, "notes.txt"), nil, 0o644))

	l := NewLoader(WithPaths(first, second, filepath.Join(first, "missing")))
	found, err := l.Discover()
	require.NoError(t, err)

	assert.Equal(t, []Info{
		{Name: "Clock", Path: filepath.Join(second, "Clock")},
		{Name: "Counter", Path: filepath.Join(first, "Counter")},
	}, found)
}

func TestLoaderFind(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "StopWatch"), 0o755))
	l := NewLoader(WithPaths(root))

	info, err := l.Find("StopWatch")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "StopWatch"), info.Path)

	info, err = l.Find("stopwatch")
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("StopWatch", filepath.Base(info.Path)))

	_, err = l.Find("")
	assert.ErrorIs(t, err, ErrPluginNotFound)
	_, err = l.Find("a/b")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}
