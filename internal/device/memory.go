package device

import (
	"errors"
	"image"
	"sync"
)

// ErrEventQueueFull is returned by Send when events are not being consumed.
var ErrEventQueueFull = errors.New("event queue full")

// Memory is a headless device. It keeps the last bitmap of every key and
// lets callers inject key events.
type Memory struct {
	mu         sync.Mutex
	layout     Layout
	bitmaps    []image.Image
	brightness int
	pushes     int
	clears     int
	closed     bool

	events chan KeyEvent
}

// NewMemory creates a headless device with the given layout.
func NewMemory(layout Layout) *Memory {
	if layout.Count <= 0 {
		layout = DefaultLayout
	}
	return &Memory{
		layout:  layout,
		bitmaps: make([]image.Image, layout.Count),
		events:  make(chan KeyEvent, 64),
	}
}

func (m *Memory) Layout() Layout { return m.layout }

func (m *Memory) SetKeyBitmap(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := checkIndex(m.layout, index); err != nil {
		return err
	}
	m.bitmaps[index] = img
	m.pushes++
	return nil
}

func (m *Memory) ClearKeys() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	clear(m.bitmaps)
	m.clears++
	return nil
}

func (m *Memory) SetBrightness(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.brightness = max(0, min(100, percent))
	return nil
}

func (m *Memory) Events() <-chan KeyEvent { return m.events }

// Close closes the events channel. Further calls are no-ops.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}

// Send injects a key event.
func (m *Memory) Send(ev KeyEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := checkIndex(m.layout, ev.Index); err != nil {
		return err
	}
	select {
	case m.events <- ev:
		return nil
	default:
		return ErrEventQueueFull
	}
}

// Press injects a down event followed by an up event.
func (m *Memory) Press(index int) error {
	if err := m.Send(KeyEvent{Index: index, Down: true}); err != nil {
		return err
	}
	return m.Send(KeyEvent{Index: index})
}

// Bitmap returns the last image pushed to a key, or nil after a clear.
func (m *Memory) Bitmap(index int) image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.bitmaps) {
		return nil
	}
	return m.bitmaps[index]
}

// Pushes counts SetKeyBitmap calls.
func (m *Memory) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}

// Clears counts ClearKeys calls.
func (m *Memory) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Brightness returns the last brightness set.
func (m *Memory) Brightness() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brightness
}

var _ Device = (*Memory)(nil)
