package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagronnestad/code-deck/internal/config"
)

func TestPrebuildAndListPlugins(t *testing.T) {
	dir := samplePlugins(t)
	broken := filepath.Join(dir, "Broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "init.lua"), []byte("codedeck.plugin {"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Empty"), 0o755))

	before, err := ListPlugins([]string{dir})
	require.NoError(t, err)
	states := map[string]string{}
	for _, st := range before {
		states[st.Name] = st.State
	}
	assert.Equal(t, map[string]string{
		"Broken":  StateUnbuilt,
		"Clock":   StateUnbuilt,
		"Counter": StateUnbuilt,
		"Empty":   StateEmpty,
	}, states)

	results, err := Prebuild(t.Context(), []string{dir}, NullLogger)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		switch r.Plugin {
		case "Clock", "Counter":
			assert.NoError(t, r.Err, r.Plugin)
			assert.FileExists(t, r.Artifact.Path)
		case "Broken":
			require.Error(t, r.Err)
			diags := r.Diagnostics()
			require.NotEmpty(t, diags)
			assert.Equal(t, "init.lua", diags[0].File)
		}
	}

	after, err := ListPlugins([]string{dir})
	require.NoError(t, err)
	for _, st := range after {
		switch st.Name {
		case "Clock", "Counter":
			assert.Equal(t, StateBuilt, st.State, st.Name)
		case "Broken":
			assert.Equal(t, StateUnbuilt, st.State)
		}
	}
}

func TestCheckDeck(t *testing.T) {
	root := t.TempDir()
	plugins := samplePlugins(t)

	good := filepath.Join(root, "deck.json")
	d := config.Default()
	d.Profiles[0].Pages[0].Keys = append(d.Profiles[0].Pages[0].Keys,
		config.Key{Index: 7, Plugin: "Weather", Tile: "Now"},
		config.Key{Index: 8, Plugin: "weather", Tile: "Later"},
	)
	writeDeck(t, good, d)

	report, err := CheckDeck(good, []string{plugins})
	require.NoError(t, err)
	require.NotNil(t, report.Deck)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], `plugin "Weather" not found`)

	badColor := filepath.Join(root, "colors.json")
	d = config.Default()
	color := "not-a-color"
	d.Profiles[0].Pages[0].Keys[0].TextColor = &color
	writeDeck(t, badColor, d)
	_, err = CheckDeck(badColor, []string{plugins})
	assert.Error(t, err)

	invalid := filepath.Join(root, "invalid.toml")
	d = config.Default()
	d.Brightness = 400
	writeDeck(t, invalid, d)
	_, err = CheckDeck(invalid, []string{plugins})
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = CheckDeck(filepath.Join(root, "missing.toml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, filepath.Join(root, "missing.toml"))

	_, err = CheckDeck(filepath.Join(root, "deck.ini"), nil)
	assert.ErrorIs(t, err, config.ErrUnsupportedFormat)
}

func TestCheckDeckSuggestsCloseNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.toml")
	d := config.Default()
	d.Profiles[0].Pages[0].Keys = append(d.Profiles[0].Pages[0].Keys,
		config.Key{Index: 9, Plugin: "Countr", Tile: "Counter"},
	)
	writeDeck(t, path, d)

	report, err := CheckDeck(path, []string{samplePlugins(t)})
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], `(did you mean "Counter"?)`)
}

func TestSuggest(t *testing.T) {
	known := []string{"Clock", "Counter"}
	assert.Equal(t, "Clock", suggest("clok", known))
	assert.Equal(t, "Counter", suggest("COUNTERS", known))
	assert.Empty(t, suggest("Weather", known))
	assert.Empty(t, suggest("Clock", nil))
}
