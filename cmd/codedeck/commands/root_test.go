package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs the root command with args and returns its output. Flag
// values are reset first since rootCmd is shared by every test.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd.PersistentFlags())
	resetFlags(pluginsCmd.Flags())

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func samplePlugins(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "plugins")
	require.NoError(t, os.CopyFS(dir, os.DirFS(filepath.Join("..", "..", "..", "plugins"))))
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

const sampleDeck = `
brightness = 70

[[profiles]]
name = "Main"

[[profiles.pages]]
name = "Home"

[[profiles.pages.keys]]
index = 0
plugin = "Counter"
tile = "Counter"

[[profiles.pages.keys]]
index = 1
plugin = "Weather"
tile = "Now"
`

func TestRootCommandShowsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "codedeck")
	assert.Contains(t, out, "Available Commands")
	assert.Contains(t, out, "validate")
}

func TestRootCommandRejectsUnknownFlag(t *testing.T) {
	_, err := execute(t, "--no-such-flag")
	assert.Error(t, err)
}

func TestRootCommandRejectsInvalidOptions(t *testing.T) {
	_, err := execute(t, "version", "--device", "hologram")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "codedeck 1.2.3")
	assert.Contains(t, out, "abc123")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	deckPath := filepath.Join(dir, "deck.toml")
	writeFile(t, deckPath, sampleDeck)
	plugins := samplePlugins(t)

	out, err := execute(t, "validate", "--config", deckPath, "--plugins", plugins)
	require.NoError(t, err)
	assert.Contains(t, out, `plugin "Weather" not found`)
	assert.Contains(t, out, "ok (1 profiles, 2 keys)")
}

func TestValidateCommandExplicitFile(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.yaml")
	writeFile(t, other, "brightness: 900\nprofiles: []\n")

	_, err := execute(t, "validate", other, "--config", filepath.Join(dir, "deck.toml"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "deck.toml"))
}

func TestPluginsCommand(t *testing.T) {
	plugins := samplePlugins(t)

	out, err := execute(t, "plugins", "--config", filepath.Join(t.TempDir(), "deck.toml"), "--plugins", plugins)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Clock")
	assert.Contains(t, out, "Counter")
	assert.Contains(t, out, "unbuilt")

	out, err = execute(t, "plugins", "--json", "--config", filepath.Join(t.TempDir(), "deck.toml"), "--plugins", plugins)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Counter"`)
}

func TestBuildCommand(t *testing.T) {
	plugins := samplePlugins(t)
	cfg := filepath.Join(t.TempDir(), "deck.toml")

	out, err := execute(t, "build", "--config", cfg, "--plugins", plugins)
	require.NoError(t, err)
	assert.Contains(t, out, "ok    Clock")
	assert.Contains(t, out, "ok    Counter")

	out, err = execute(t, "build", "--config", cfg, "--plugins", plugins)
	require.NoError(t, err)
	assert.Contains(t, out, "ok    Counter (up to date)")

	out, err = execute(t, "plugins", "--config", cfg, "--plugins", plugins)
	require.NoError(t, err)
	assert.Contains(t, out, "built")
	assert.NotContains(t, out, "unbuilt")
}

func TestBuildCommandReportsFailures(t *testing.T) {
	plugins := t.TempDir()
	writeFile(t, filepath.Join(plugins, "Broken", "init.lua"), "return {\n")

	out, err := execute(t, "build", "--config", filepath.Join(t.TempDir(), "deck.toml"), "--plugins", plugins)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL  Broken")
	assert.Contains(t, out, "init.lua")
}
