package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/deck"
	"github.com/hagronnestad/code-deck/internal/device"
)

// samplePlugins copies the repository's sample plugins into a temporary
// directory so builds do not write into the source tree.
func samplePlugins(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "plugins")
	require.NoError(t, os.CopyFS(dir, os.DirFS(filepath.Join("..", "..", "plugins"))))
	return dir
}

func testOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	opts := DefaultOptions()
	opts.ConfigPath = filepath.Join(root, "deck.toml")
	opts.PluginPaths = []string{samplePlugins(t)}
	opts.Device = DeviceMemory
	opts.Debounce = 20 * time.Millisecond
	return opts
}

func writeDeck(t *testing.T, path string, d *config.Deck) {
	t.Helper()
	format, err := config.FormatOf(path)
	require.NoError(t, err)
	data, err := config.Encode(format, d)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func findBinding(m *deck.Manager, plugin, tile string) *deck.Binding {
	for _, b := range m.Bindings() {
		k := b.Key()
		if k.Plugin == plugin && k.Tile == tile {
			return b
		}
	}
	return nil
}

func displayText(b *deck.Binding) string {
	if b == nil {
		return ""
	}
	if t := b.Display().Text; t != nil {
		return *t
	}
	return ""
}

type running struct {
	app    *App
	dev    *device.Memory
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, opts Options) *running {
	t.Helper()
	dev := device.NewMemory(device.DefaultLayout)
	a, err := New(opts, WithDevice(dev), WithLogger(NullLogger))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{app: a, dev: dev, cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- a.Run(ctx) }()

	t.Cleanup(func() {
		r.stop(t)
		_ = a.Close()
	})
	return r
}

func (r *running) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	select {
	case err, ok := <-r.done:
		if ok {
			assert.NoError(t, err)
			close(r.done)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestAppRunsDefaultDeckWithSamplePlugins(t *testing.T) {
	opts := testOptions(t)
	r := start(t, opts)
	m := r.app.Deck()

	require.Eventually(t, func() bool {
		b := findBinding(m, "Counter", "Counter")
		return b != nil && b.State() == deck.StateActive && displayText(b) == "0"
	}, 10*time.Second, 20*time.Millisecond)
	assert.FileExists(t, opts.ConfigPath)

	clock := findBinding(m, "Clock", "Clock")
	require.NotNil(t, clock)
	assert.NoError(t, clock.Err())
	assert.Regexp(t, `^\d\d:\d\d$`, displayText(clock))

	require.NoError(t, r.dev.Press(1))
	require.Eventually(t, func() bool {
		return displayText(findBinding(m, "Counter", "Counter")) == "1"
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotNil(t, r.dev.Bitmap(1))
}

func TestAppReloadsWhenDeckFileChanges(t *testing.T) {
	opts := testOptions(t)
	writeDeck(t, opts.ConfigPath, config.Default())
	r := start(t, opts)
	m := r.app.Deck()

	require.Eventually(t, func() bool { return len(m.Bindings()) > 0 }, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, config.DefaultBrightness, r.dev.Brightness())

	d := config.Default()
	d.Brightness = 30
	writeDeck(t, opts.ConfigPath, d)

	require.Eventually(t, func() bool { return r.dev.Brightness() == 30 }, 5*time.Second, 20*time.Millisecond)
}

func TestAppLockAndUnlock(t *testing.T) {
	r := start(t, testOptions(t))
	m := r.app.Deck()
	require.Eventually(t, func() bool { return len(m.Bindings()) > 0 }, 10*time.Second, 20*time.Millisecond)

	r.app.Lock()
	require.Eventually(t, func() bool {
		cur, _ := m.Current()
		return cur == deck.Frame{Profile: "Locked", Page: "Locked"}
	}, 2*time.Second, 10*time.Millisecond)

	r.app.Unlock()
	require.Eventually(t, func() bool {
		cur, _ := m.Current()
		return cur == deck.Frame{Profile: "DefaultProfile", Page: "Home"}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAppRunTwice(t *testing.T) {
	r := start(t, testOptions(t))
	require.Eventually(t, func() bool { return r.app.running.Load() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, r.app.Run(context.Background()), ErrAlreadyRunning)
}

func TestAppStopsWhenDeviceCloses(t *testing.T) {
	r := start(t, testOptions(t))
	require.Eventually(t, func() bool { return len(r.app.Deck().Bindings()) > 0 }, 10*time.Second, 20*time.Millisecond)

	require.NoError(t, r.dev.Close())
	select {
	case err := <-r.done:
		assert.NoError(t, err)
		close(r.done)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := testOptions(t)
	opts.Device = "usb"
	_, err := New(opts)
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestNewFailsWhenDeviceCannotOpen(t *testing.T) {
	opts := testOptions(t)
	a := func(a *App) {
		a.openDev = func(Options, *slog.Logger) (device.Device, error) { return nil, os.ErrPermission }
	}
	_, err := New(opts, a, WithLogger(NullLogger))
	var ierr *InitError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "device", ierr.Component)
	assert.ErrorIs(t, err, os.ErrPermission)
}
