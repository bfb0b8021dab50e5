package tile

import (
	"context"
	"image"
	"image/color"
	"maps"
	"sync"

	"github.com/hagronnestad/code-deck/internal/settings"
)

// Display is a snapshot of a tile's visual state. Nil pointers mean the
// property was never set and the key's configured value applies.
type Display struct {
	Text            *string
	TextColor       *color.RGBA
	BackgroundColor *color.RGBA
	Font            *string
	FontSize        *float64
	Image           image.Image
	ImagePadding    *int
	Indicator       bool
	IndicatorColor  *color.RGBA
}

// Base holds the observable state of a tile. Embed it to satisfy Tile with
// no-op hooks and no declared settings.
//
// Base is safe for concurrent use. Setters notify the registered sink after
// the lock is released.
type Base struct {
	mu sync.RWMutex

	text            *string
	textColor       *color.RGBA
	backgroundColor *color.RGBA
	font            *string
	fontSize        *float64
	image           image.Image
	imagePadding    *int
	indicator       bool
	indicatorColor  *color.RGBA
	raw             map[string]string

	notify func()
}

// SetNotify registers the function called after every visual change.
// Passing nil stops notifications.
func (b *Base) SetNotify(fn func()) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

func (b *Base) update(apply func()) {
	b.mu.Lock()
	apply()
	fn := b.notify
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// SetText sets the key text.
func (b *Base) SetText(s string) {
	b.update(func() { b.text = &s })
}

// ClearText removes the tile's text so the key's configured text applies.
func (b *Base) ClearText() {
	b.update(func() { b.text = nil })
}

// Text returns the tile's text and whether it was set.
func (b *Base) Text() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.text == nil {
		return "", false
	}
	return *b.text, true
}

// SetTextColor sets the text color.
func (b *Base) SetTextColor(c color.Color) {
	rgba := toRGBA(c)
	b.update(func() { b.textColor = &rgba })
}

// SetBackgroundColor sets the key background.
func (b *Base) SetBackgroundColor(c color.Color) {
	rgba := toRGBA(c)
	b.update(func() { b.backgroundColor = &rgba })
}

// SetFont sets the font family name.
func (b *Base) SetFont(name string) {
	b.update(func() { b.font = &name })
}

// SetFontSize sets the font size in points.
func (b *Base) SetFontSize(size float64) {
	b.update(func() { b.fontSize = &size })
}

// SetImage sets the key image. A nil image removes it.
func (b *Base) SetImage(img image.Image) {
	b.update(func() { b.image = img })
}

// SetImagePadding sets the padding around the key image, in pixels.
func (b *Base) SetImagePadding(px int) {
	b.update(func() { b.imagePadding = &px })
}

// SetIndicator toggles the indicator dot.
func (b *Base) SetIndicator(on bool) {
	b.update(func() { b.indicator = on })
}

// Indicator reports whether the indicator dot is shown.
func (b *Base) Indicator() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indicator
}

// SetIndicatorColor sets the indicator dot color.
func (b *Base) SetIndicatorColor(c color.Color) {
	rgba := toRGBA(c)
	b.update(func() { b.indicatorColor = &rgba })
}

// Display returns a snapshot of the current visual state.
func (b *Base) Display() Display {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Display{
		Text:            clonePtr(b.text),
		TextColor:       clonePtr(b.textColor),
		BackgroundColor: clonePtr(b.backgroundColor),
		Font:            clonePtr(b.font),
		FontSize:        clonePtr(b.fontSize),
		Image:           b.image,
		ImagePadding:    clonePtr(b.imagePadding),
		Indicator:       b.indicator,
		IndicatorColor:  clonePtr(b.indicatorColor),
	}
}

// RawSettings returns the complete settings map bound to the tile.
func (b *Base) RawSettings() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.raw)
}

// Setting returns one raw setting value.
func (b *Base) Setting(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.raw[name]
	return v, ok
}

// SetRawSettings implements settings.Target.
func (b *Base) SetRawSettings(values map[string]string) {
	b.mu.Lock()
	b.raw = values
	b.mu.Unlock()
}

// DescribeSettings implements settings.Target with no declared settings.
func (b *Base) DescribeSettings() []settings.Field { return nil }

// Init implements Tile.
func (b *Base) Init(context.Context) error { return nil }

// PressDown implements Tile.
func (b *Base) PressDown(context.Context) error { return nil }

// PressUp implements Tile.
func (b *Base) PressUp(context.Context) error { return nil }

// DeInit implements Tile.
func (b *Base) DeInit(context.Context) error { return nil }

// Observable implements Tile.
func (b *Base) Observable() *Base { return b }

func toRGBA(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
