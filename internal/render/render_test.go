package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagronnestad/code-deck/internal/config"
	"github.com/hagronnestad/code-deck/internal/tile"
)

func ptr[T any](v T) *T { return &v }

func TestParseColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"#ff0000":   {R: 255, A: 255},
		"#0F0":      {G: 255, A: 255},
		"00ff00":    {G: 255, A: 255},
		" white ":   {R: 255, G: 255, B: 255, A: 255},
		"#000000ff": {A: 255},
		"#ffffff00": {},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "#12", "#gg0000", "#ff0000zz", "chartreuse-ish"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrInvalidColor, bad)
	}
}

func TestFormatColor(t *testing.T) {
	assert.Equal(t, "#ff8000", FormatColor(color.RGBA{R: 255, G: 128, A: 255}))
	assert.Equal(t, "#00000000", FormatColor(color.RGBA{}))

	c, err := ParseColor(FormatColor(color.RGBA{R: 1, G: 2, B: 3, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, c)
}

func TestOverridesFromKey(t *testing.T) {
	key := config.Key{
		Index:                  0,
		TextColor:              ptr("#00ff00"),
		BackgroundColor:        ptr("nope"),
		ActivityIndicatorColor: ptr("#0000ff"),
		FontBold:               ptr(true),
		LineSpacing:            ptr(1.5),
		KeyType:                config.KeyPage,
	}
	o, err := OverridesFromKey(key, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidColor)
	assert.Contains(t, err.Error(), "backgroundColor")

	assert.Equal(t, &color.RGBA{G: 255, A: 255}, o.TextColor)
	assert.Nil(t, o.BackgroundColor)
	assert.Equal(t, &color.RGBA{B: 255, A: 255}, o.IndicatorColor)
	assert.True(t, o.FolderIndicator)
	assert.True(t, o.Bold)
	assert.Equal(t, 1.5, o.LineSpacing)

	key.ShowFolderIndicator = ptr(false)
	key.BackgroundColor = nil
	o, err = OverridesFromKey(key, nil)
	require.NoError(t, err)
	assert.False(t, o.FolderIndicator)
}

func TestCheckColors(t *testing.T) {
	deck := config.Default()
	require.NoError(t, CheckColors(deck))

	deck.Profiles[0].Pages[0].Keys[0].TextColor = ptr("#xyz")
	err := CheckColors(deck)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `page "Home" key 0`)
}

func TestComposeDefaults(t *testing.T) {
	c := NewCompositor(0)
	img, err := c.Compose(tile.Display{}, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, DefaultKeySize, DefaultKeySize), img.Bounds())
	assert.Equal(t, DefaultBackgroundColor, img.(*image.RGBA).RGBAAt(10, 10))
}

func TestComposeKeyColorsWin(t *testing.T) {
	c := NewCompositor(32)
	tileBG := color.RGBA{R: 255, A: 255}
	keyBG := color.RGBA{B: 255, A: 255}

	img, err := c.Compose(tile.Display{BackgroundColor: &tileBG}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, tileBG, img.(*image.RGBA).RGBAAt(0, 0))

	img, err = c.Compose(tile.Display{BackgroundColor: &tileBG}, Overrides{BackgroundColor: &keyBG})
	require.NoError(t, err)
	assert.Equal(t, keyBG, img.(*image.RGBA).RGBAAt(0, 0))
}

func TestComposeDrawsText(t *testing.T) {
	c := NewCompositor(72)
	img, err := c.Compose(tile.Display{Text: ptr("88\n88")}, Overrides{})
	require.NoError(t, err)

	rgba := img.(*image.RGBA)
	lit := 0
	for y := 0; y < 72; y++ {
		for x := 0; x < 72; x++ {
			if rgba.RGBAAt(x, y).R > 128 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 20)
}

func TestComposeIndicatorAndFolder(t *testing.T) {
	c := NewCompositor(64)
	img, err := c.Compose(tile.Display{Indicator: true}, Overrides{FolderIndicator: true})
	require.NoError(t, err)
	rgba := img.(*image.RGBA)

	r := 64 / 14
	assert.Equal(t, DefaultIndicatorColor, rgba.RGBAAt(64-r-3, r+3))
	assert.Equal(t, DefaultFolderColor, rgba.RGBAAt(32, 63))
	assert.Equal(t, DefaultBackgroundColor, rgba.RGBAAt(32, 32))

	own := color.RGBA{G: 200, A: 255}
	img, err = c.Compose(tile.Display{Indicator: true, IndicatorColor: &own}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, own, img.(*image.RGBA).RGBAAt(64-r-3, r+3))
}

func TestComposeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	green := color.RGBA{G: 255, A: 255}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetRGBA(x, y, green)
		}
	}

	c := NewCompositor(40)
	img, err := c.Compose(tile.Display{ImagePadding: ptr(10)}, Overrides{Image: src})
	require.NoError(t, err)
	rgba := img.(*image.RGBA)
	center := rgba.RGBAAt(20, 20)
	assert.Greater(t, center.G, uint8(200))
	assert.Less(t, center.R, uint8(50))
	assert.Equal(t, DefaultBackgroundColor, rgba.RGBAAt(2, 2))

	_, err = c.Compose(tile.Display{ImagePadding: ptr(20)}, Overrides{Image: src})
	assert.ErrorIs(t, err, ErrNoRoom)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icon.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	require.NoError(t, f.Close())

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = LoadImage(bad)
	assert.Error(t, err)
}

func TestLogo(t *testing.T) {
	img := NewCompositor(48).Logo()
	require.NotNil(t, img)
	assert.Equal(t, 48, img.Bounds().Dx())
}
