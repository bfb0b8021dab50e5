// Package device abstracts the physical key surface.
//
// Two implementations ship: Memory, a headless deck that records pushed
// bitmaps and accepts synthetic presses, and Terminal, a virtual deck drawn
// with tcell.
package device

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrClosed is returned by a closed device.
	ErrClosed = errors.New("device closed")

	// ErrKeyOutOfRange is returned for a key index the device does not have.
	ErrKeyOutOfRange = errors.New("key index out of range")
)

// Layout describes the key grid.
type Layout struct {
	Count   int
	Columns int
	KeySize int
}

// Rows returns the number of key rows.
func (l Layout) Rows() int {
	if l.Columns <= 0 {
		return 0
	}
	return (l.Count + l.Columns - 1) / l.Columns
}

// Middle returns the index of the key closest to the grid center.
func (l Layout) Middle() int {
	if l.Count == 0 {
		return 0
	}
	row := l.Rows() / 2
	idx := row*l.Columns + l.Columns/2
	return min(idx, l.Count-1)
}

// DefaultLayout is a 15-key deck with 72px keys.
var DefaultLayout = Layout{Count: 15, Columns: 5, KeySize: 72}

// KeyEvent reports a key going down or up.
type KeyEvent struct {
	Index int
	Down  bool
}

// Device is a key surface.
type Device interface {
	Layout() Layout
	SetKeyBitmap(index int, img image.Image) error
	ClearKeys() error
	SetBrightness(percent int) error
	Events() <-chan KeyEvent
	Close() error
}

func checkIndex(l Layout, index int) error {
	if index < 0 || index >= l.Count {
		return fmt.Errorf("%w: %d of %d", ErrKeyOutOfRange, index, l.Count)
	}
	return nil
}
