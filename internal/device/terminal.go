package device

import (
	"image"
	"image/color"
	"log/slog"
	"sync"
	"unicode"

	"github.com/gdamore/tcell/v2"
	xdraw "golang.org/x/image/draw"
)

// Cells per key. Each cell shows two vertical pixels with a half block.
const (
	keyCellsWide = 12
	keyCellsHigh = 6
)

var keyboardRows = []string{"1234567890", "qwertyuiop", "asdfghjkl;", "zxcvbnm,./"}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithScreen uses an existing tcell screen, typically a simulation screen.
func WithScreen(s tcell.Screen) TerminalOption {
	return func(t *Terminal) { t.screen = s }
}

// WithLayout overrides the key grid.
func WithLayout(l Layout) TerminalOption {
	return func(t *Terminal) {
		if l.Count > 0 && l.Columns > 0 {
			t.layout = l
		}
	}
}

// WithTerminalLogger sets the logger.
func WithTerminalLogger(logger *slog.Logger) TerminalOption {
	return func(t *Terminal) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Terminal is a virtual deck drawn in the terminal. Keys are pressed with
// the keyboard (rows 1-0, q-p, a-; and z-/) or the mouse. Esc or Ctrl-C
// closes the Quit channel.
type Terminal struct {
	mu         sync.Mutex
	screen     tcell.Screen
	layout     Layout
	logger     *slog.Logger
	brightness int
	keys       []image.Image
	hotkeys    map[rune]int
	mouseKey   int

	events    chan KeyEvent
	quit      chan struct{}
	quitOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewTerminal initializes the screen and starts reading input.
func NewTerminal(opts ...TerminalOption) (*Terminal, error) {
	t := &Terminal{
		layout:     DefaultLayout,
		logger:     slog.Default(),
		brightness: 100,
		mouseKey:   -1,
		events:     make(chan KeyEvent, 64),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "terminal-device")
	t.keys = make([]image.Image, t.layout.Count)
	t.hotkeys = hotkeys(t.layout)

	if t.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, err
		}
		t.screen = s
	}
	if err := t.screen.Init(); err != nil {
		return nil, err
	}
	t.screen.EnableMouse()
	t.screen.HideCursor()

	t.mu.Lock()
	t.redrawLocked()
	t.mu.Unlock()

	go t.loop()
	return t, nil
}

func hotkeys(l Layout) map[rune]int {
	m := make(map[rune]int, l.Count)
	for i := 0; i < l.Count; i++ {
		row, col := i/l.Columns, i%l.Columns
		if row < len(keyboardRows) && col < len(keyboardRows[row]) {
			m[rune(keyboardRows[row][col])] = i
		}
	}
	return m
}

func (t *Terminal) Layout() Layout { return t.layout }

// Quit is closed when the user asks to leave.
func (t *Terminal) Quit() <-chan struct{} { return t.quit }

func (t *Terminal) Events() <-chan KeyEvent { return t.events }

func (t *Terminal) SetKeyBitmap(index int, img image.Image) error {
	if err := checkIndex(t.layout, index); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed() {
		return ErrClosed
	}
	t.keys[index] = img
	t.drawKeyLocked(index)
	t.screen.Show()
	return nil
}

func (t *Terminal) ClearKeys() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed() {
		return ErrClosed
	}
	clear(t.keys)
	t.redrawLocked()
	return nil
}

func (t *Terminal) SetBrightness(percent int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed() {
		return ErrClosed
	}
	t.brightness = max(10, min(100, percent))
	t.redrawLocked()
	return nil
}

// Close restores the terminal and closes the events channel.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.screen.Fini()
		t.mu.Unlock()
		<-t.done
	})
	return nil
}

func (t *Terminal) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Terminal) origin(index int) (int, int) {
	row, col := index/t.layout.Columns, index%t.layout.Columns
	return 1 + col*(keyCellsWide+1), 1 + row*(keyCellsHigh+1)
}

func (t *Terminal) keyAt(x, y int) (int, bool) {
	for i := 0; i < t.layout.Count; i++ {
		ox, oy := t.origin(i)
		if x >= ox && x < ox+keyCellsWide && y >= oy && y < oy+keyCellsHigh {
			return i, true
		}
	}
	return 0, false
}

func (t *Terminal) redrawLocked() {
	t.screen.Clear()
	for i := range t.keys {
		t.drawKeyLocked(i)
	}
	t.screen.Show()
}

func (t *Terminal) drawKeyLocked(index int) {
	ox, oy := t.origin(index)
	img := t.keys[index]

	if img == nil {
		blank := tcell.StyleDefault.Background(tcell.ColorBlack)
		for y := 0; y < keyCellsHigh; y++ {
			for x := 0; x < keyCellsWide; x++ {
				t.screen.SetContent(ox+x, oy+y, ' ', nil, blank)
			}
		}
	} else {
		thumb := image.NewRGBA(image.Rect(0, 0, keyCellsWide, keyCellsHigh*2))
		xdraw.NearestNeighbor.Scale(thumb, thumb.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		for y := 0; y < keyCellsHigh; y++ {
			for x := 0; x < keyCellsWide; x++ {
				style := tcell.StyleDefault.
					Foreground(t.tcellColor(thumb.RGBAAt(x, 2*y))).
					Background(t.tcellColor(thumb.RGBAAt(x, 2*y+1)))
				t.screen.SetContent(ox+x, oy+y, '▀', nil, style)
			}
		}
	}

	for r, i := range t.hotkeys {
		if i == index {
			t.screen.SetContent(ox, oy+keyCellsHigh, r, nil, tcell.StyleDefault.Foreground(tcell.ColorGray))
		}
	}
}

func (t *Terminal) tcellColor(c color.RGBA) tcell.Color {
	scale := func(v uint8) int32 { return int32(int(v) * t.brightness / 100) }
	return tcell.NewRGBColor(scale(c.R), scale(c.G), scale(c.B))
}

func (t *Terminal) loop() {
	defer close(t.done)
	defer close(t.events)

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case *tcell.EventKey:
			t.handleKey(e)
		case *tcell.EventMouse:
			t.handleMouse(e)
		case *tcell.EventResize:
			t.mu.Lock()
			t.screen.Sync()
			t.redrawLocked()
			t.mu.Unlock()
		}
	}
}

func (t *Terminal) handleKey(e *tcell.EventKey) {
	switch e.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		t.quitOnce.Do(func() { close(t.quit) })
	case tcell.KeyRune:
		idx, ok := t.hotkeys[unicode.ToLower(e.Rune())]
		if !ok {
			return
		}
		// Terminals report no key release; a keystroke is a full press.
		t.send(KeyEvent{Index: idx, Down: true})
		t.send(KeyEvent{Index: idx})
	}
}

func (t *Terminal) handleMouse(e *tcell.EventMouse) {
	x, y := e.Position()
	buttons := e.Buttons()
	switch {
	case buttons&tcell.Button1 != 0 && t.mouseKey < 0:
		if idx, ok := t.keyAt(x, y); ok {
			t.mouseKey = idx
			t.send(KeyEvent{Index: idx, Down: true})
		}
	case buttons == tcell.ButtonNone && t.mouseKey >= 0:
		t.send(KeyEvent{Index: t.mouseKey})
		t.mouseKey = -1
	}
}

func (t *Terminal) send(ev KeyEvent) {
	select {
	case t.events <- ev:
	default:
		t.logger.Warn("dropping key event", "key", ev.Index, "down", ev.Down)
	}
}

var _ Device = (*Terminal)(nil)
