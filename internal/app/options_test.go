package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagronnestad/code-deck/internal/config/watcher"
)

func parseOptions(t *testing.T, args ...string) (Options, error) {
	t.Helper()
	v := NewViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs, v))
	require.NoError(t, fs.Parse(args))
	return LoadOptions(v)
}

func TestLoadOptionsDefaults(t *testing.T) {
	opts, err := parseOptions(t)
	require.NoError(t, err)
	assert.Equal(t, DeviceTerminal, opts.Device)
	assert.Equal(t, "INFO", opts.LogLevel)
	assert.Equal(t, "text", opts.LogFormat)
	assert.Equal(t, watcher.DefaultDebounce, opts.Debounce)
	assert.NotEmpty(t, opts.ConfigPath)
	assert.Empty(t, opts.PluginPaths)
}

func TestLoadOptionsFlagsAndEnvironment(t *testing.T) {
	t.Setenv("CODEDECK_DEVICE", "memory")
	t.Setenv("CODEDECK_LOG_LEVEL", "error")
	t.Setenv("CODEDECK_DEBOUNCE", "1s")

	opts, err := parseOptions(t,
		"--log-level", "debug",
		"--plugins", "a,b",
		"--config", "/tmp/deck.yaml",
	)
	require.NoError(t, err)

	assert.Equal(t, DeviceMemory, opts.Device)
	assert.Equal(t, "debug", opts.LogLevel, "flags win over the environment")
	assert.Equal(t, time.Second, opts.Debounce)
	assert.Equal(t, []string{"a", "b"}, opts.PluginPaths)
	assert.Equal(t, "/tmp/deck.yaml", opts.ConfigPath)
}

func TestLoadOptionsPluginPathList(t *testing.T) {
	t.Setenv("CODEDECK_PLUGINS", filepath.Join("x", "one")+string(filepath.ListSeparator)+filepath.Join("y", "two"))
	opts, err := parseOptions(t)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("x", "one"), filepath.Join("y", "two")}, opts.PluginPaths)
}

func TestOptionsValidate(t *testing.T) {
	good := DefaultOptions()
	require.NoError(t, good.Validate())

	bad := good
	bad.Device = "usb"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownDevice)

	bad = good
	bad.LogFormat = "xml"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidOptions)

	bad = good
	bad.Debounce = -time.Second
	assert.ErrorIs(t, bad.Validate(), ErrInvalidOptions)

	bad = good
	bad.ConfigPath = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidOptions)
}

func TestOptionsDerivedPaths(t *testing.T) {
	opts := Options{ConfigPath: filepath.Join("home", "deck.toml"), Device: DeviceTerminal}
	assert.Equal(t, []string{filepath.Join("home", "plugins")}, opts.Plugins())
	assert.Equal(t, "home", opts.BaseDir())
	assert.Equal(t, filepath.Join("home", "codedeck.log"), opts.LogDestination())

	opts.Device = DeviceMemory
	assert.Empty(t, opts.LogDestination())

	opts.PluginPaths = []string{"elsewhere"}
	opts.LogFile = "x.log"
	assert.Equal(t, []string{"elsewhere"}, opts.Plugins())
	assert.Equal(t, "x.log", opts.LogDestination())
}
