package device

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func next(t *testing.T, ch <-chan KeyEvent) KeyEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no key event")
		return KeyEvent{}
	}
}

func TestLayout(t *testing.T) {
	assert.Equal(t, 3, DefaultLayout.Rows())
	assert.Equal(t, 7, DefaultLayout.Middle())
	assert.Equal(t, 4, Layout{Count: 6, Columns: 3}.Middle())
	assert.Equal(t, 0, Layout{}.Rows())
}

func TestMemoryDevice(t *testing.T) {
	m := NewMemory(Layout{Count: 6, Columns: 3, KeySize: 16})
	img := solid(color.RGBA{R: 255, A: 255})

	require.NoError(t, m.SetKeyBitmap(2, img))
	assert.Same(t, img, m.Bitmap(2))
	assert.Equal(t, 1, m.Pushes())
	assert.ErrorIs(t, m.SetKeyBitmap(6, img), ErrKeyOutOfRange)

	require.NoError(t, m.ClearKeys())
	assert.Nil(t, m.Bitmap(2))
	assert.Equal(t, 1, m.Clears())

	require.NoError(t, m.SetBrightness(150))
	assert.Equal(t, 100, m.Brightness())

	require.NoError(t, m.Press(1))
	assert.Equal(t, KeyEvent{Index: 1, Down: true}, next(t, m.Events()))
	assert.Equal(t, KeyEvent{Index: 1}, next(t, m.Events()))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, ok := <-m.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, m.Press(0), ErrClosed)
}

func newSimTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	term, err := NewTerminal(WithScreen(sim), WithLayout(Layout{Count: 15, Columns: 5, KeySize: 72}))
	require.NoError(t, err)
	t.Cleanup(func() { term.Close() })
	return term, sim
}

func TestTerminalKeyboard(t *testing.T) {
	term, sim := newSimTerminal(t)

	sim.InjectKey(tcell.KeyRune, 'W', tcell.ModNone)
	assert.Equal(t, KeyEvent{Index: 6, Down: true}, next(t, term.Events()))
	assert.Equal(t, KeyEvent{Index: 6}, next(t, term.Events()))

	sim.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	select {
	case <-term.Quit():
	case <-time.After(2 * time.Second):
		t.Fatal("quit not signalled")
	}
}

func TestTerminalMouse(t *testing.T) {
	term, sim := newSimTerminal(t)

	x, y := term.origin(3)
	sim.InjectMouse(x+1, y+1, tcell.Button1, tcell.ModNone)
	sim.InjectMouse(x+1, y+1, tcell.ButtonNone, tcell.ModNone)

	assert.Equal(t, KeyEvent{Index: 3, Down: true}, next(t, term.Events()))
	assert.Equal(t, KeyEvent{Index: 3}, next(t, term.Events()))
}

func TestTerminalDrawsBitmap(t *testing.T) {
	term, sim := newSimTerminal(t)

	require.NoError(t, term.SetKeyBitmap(0, solid(color.RGBA{R: 255, A: 255})))
	x, y := term.origin(0)
	r, _, style, _ := sim.GetContent(x+2, y+2)
	fg, bg, _ := style.Decompose()
	assert.Equal(t, '▀', r)
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), fg)
	assert.Equal(t, tcell.NewRGBColor(255, 0, 0), bg)

	require.NoError(t, term.SetBrightness(50))
	_, _, style, _ = sim.GetContent(x+2, y+2)
	fg, _, _ = style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(127, 0, 0), fg)

	assert.ErrorIs(t, term.SetKeyBitmap(15, nil), ErrKeyOutOfRange)
}

func TestTerminalClose(t *testing.T) {
	term, _ := newSimTerminal(t)
	require.NoError(t, term.Close())

	_, ok := <-term.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, term.ClearKeys(), ErrClosed)
}
