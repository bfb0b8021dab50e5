package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hagronnestad/code-deck/internal/tile"
)

// DefaultKeySize is the edge length of a key bitmap in pixels.
const DefaultKeySize = 72

// DefaultFontSize is the text size used when neither key nor tile sets one.
const DefaultFontSize = 16.0

// ErrNoRoom is returned when image padding leaves no space to draw into.
var ErrNoRoom = errors.New("image padding leaves no room")

// Compositor draws key bitmaps. Text is drawn with a single bitmap face
// scaled to the requested size; font family names are not resolved.
type Compositor struct {
	size int
	face font.Face
}

// NewCompositor creates a compositor for square keys of the given size.
func NewCompositor(size int) *Compositor {
	if size <= 0 {
		size = DefaultKeySize
	}
	return &Compositor{size: size, face: basicfont.Face7x13}
}

// Size returns the key edge length.
func (c *Compositor) Size() int {
	return c.size
}

// Compose merges a tile's display state with the key's overrides and draws
// the result. Key colors, image and indicator color win over the tile's;
// text, font size and image padding come from the tile, which was seeded
// from the key when it was created.
func (c *Compositor) Compose(d tile.Display, o Overrides) (image.Image, error) {
	dst := image.NewRGBA(image.Rect(0, 0, c.size, c.size))

	bg := pick(o.BackgroundColor, d.BackgroundColor, &DefaultBackgroundColor)
	draw.Draw(dst, dst.Bounds(), image.NewUniform(*bg), image.Point{}, draw.Src)

	img := o.Image
	if img == nil {
		img = d.Image
	}
	if img != nil {
		padding := 0
		if d.ImagePadding != nil {
			padding = *d.ImagePadding
		}
		if err := c.drawImage(dst, img, padding); err != nil {
			return nil, err
		}
	}

	if d.Text != nil && *d.Text != "" {
		size := DefaultFontSize
		if d.FontSize != nil && *d.FontSize > 0 {
			size = *d.FontSize
		}
		fg := pick(o.TextColor, d.TextColor, &DefaultTextColor)
		c.drawText(dst, *d.Text, *fg, size, o)
	}

	if d.Indicator {
		ic := pick(o.IndicatorColor, d.IndicatorColor, &DefaultIndicatorColor)
		r := max(3, c.size/14)
		fillCircle(dst, image.Pt(c.size-r-3, r+3), r, *ic)
	}

	if o.FolderIndicator {
		fc := pick(o.FolderIndicatorColor, &DefaultFolderColor)
		h := max(3, c.size/16)
		draw.Draw(dst, image.Rect(0, c.size-h, c.size, c.size), image.NewUniform(*fc), image.Point{}, draw.Over)
	}

	return dst, nil
}

// Logo draws the placeholder shown while the deck is being configured.
func (c *Compositor) Logo() image.Image {
	text := "Code\nDeck"
	size := DefaultFontSize
	img, _ := c.Compose(tile.Display{Text: &text, FontSize: &size}, Overrides{
		TextColor:       &DefaultIndicatorColor,
		BackgroundColor: &color.RGBA{R: 0x20, G: 0x20, B: 0x28, A: 0xff},
		Bold:            true,
	})
	return img
}

func (c *Compositor) drawImage(dst *image.RGBA, img image.Image, padding int) error {
	area := c.size - 2*padding
	if area <= 0 {
		return fmt.Errorf("%w: padding %d on %dpx key", ErrNoRoom, padding, c.size)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil
	}

	scale := min(float64(area)/float64(b.Dx()), float64(area)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	x := (c.size - w) / 2
	y := (c.size - h) / 2
	xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), img, b, xdraw.Over, nil)
	return nil
}

func (c *Compositor) drawText(dst *image.RGBA, text string, fg color.RGBA, size float64, o Overrides) {
	layer := c.textLayer(text, fg, o)
	lb := layer.Bounds()
	if lb.Empty() {
		return
	}

	glyph := float64(c.face.Metrics().Height.Ceil())
	scale := size / glyph
	scale = min(scale, float64(c.size)/float64(lb.Dx()), float64(c.size)/float64(lb.Dy()))

	w := max(1, int(float64(lb.Dx())*scale))
	h := max(1, int(float64(lb.Dy())*scale))
	x := (c.size - w) / 2
	y := (c.size - h) / 2
	xdraw.ApproxBiLinear.Scale(dst, image.Rect(x, y, x+w, y+h), layer, lb, xdraw.Over, nil)
}

// textLayer draws centered lines at the face's native size onto a
// transparent image.
func (c *Compositor) textLayer(text string, fg color.RGBA, o Overrides) *image.RGBA {
	lines := strings.Split(text, "\n")
	m := c.face.Metrics()
	glyph := m.Height.Ceil()

	spacing := 1.0
	if o.LineSpacing > 0 {
		spacing = o.LineSpacing
	}
	step := int(float64(glyph) * spacing)

	width := 0
	for _, line := range lines {
		width = max(width, font.MeasureString(c.face, line).Ceil())
	}
	if width == 0 {
		return image.NewRGBA(image.Rectangle{})
	}

	extra := 0
	if o.Bold {
		extra++
	}
	slant := 0
	if o.Italic {
		slant = glyph / 4
	}
	height := step*(len(lines)-1) + glyph
	layer := image.NewRGBA(image.Rect(0, 0, width+extra+slant, height))

	d := &font.Drawer{Dst: layer, Src: image.NewUniform(fg), Face: c.face}
	for i, line := range lines {
		lw := font.MeasureString(c.face, line).Ceil()
		x := (width - lw) / 2
		y := i*step + m.Ascent.Ceil()
		for dx := 0; dx <= extra; dx++ {
			d.Dot = fixed.P(x+dx, y)
			d.DrawString(line)
		}
	}

	if slant > 0 {
		return shear(layer, slant)
	}
	return layer
}

// shear shifts rows right by up to slant pixels, the top row most.
func shear(src *image.RGBA, slant int) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := slant * (b.Max.Y - 1 - y) / max(1, b.Dy()-1)
		for x := b.Min.X; x < b.Max.X; x++ {
			if sx := x - off; sx >= b.Min.X && sx < b.Max.X {
				out.SetRGBA(x, y, src.RGBAAt(sx, y))
			}
		}
	}
	return out
}

func fillCircle(dst *image.RGBA, center image.Point, r int, c color.RGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				dst.SetRGBA(center.X+x, center.Y+y, c)
			}
		}
	}
}
