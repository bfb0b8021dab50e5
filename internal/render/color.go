package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor is returned for color strings that cannot be parsed.
var ErrInvalidColor = errors.New("invalid color")

// Defaults used when neither the key nor the tile sets a color.
var (
	DefaultTextColor       = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	DefaultBackgroundColor = color.RGBA{A: 0xff}
	DefaultIndicatorColor  = color.RGBA{R: 0xff, G: 0xff, A: 0xff}
	DefaultFolderColor     = color.RGBA{R: 0x1e, G: 0x6f, B: 0xff, A: 0xff}
)

var named = map[string]color.RGBA{
	"black":       {A: 0xff},
	"white":       {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"red":         {R: 0xff, A: 0xff},
	"green":       {G: 0x80, A: 0xff},
	"lime":        {G: 0xff, A: 0xff},
	"blue":        {B: 0xff, A: 0xff},
	"yellow":      {R: 0xff, G: 0xff, A: 0xff},
	"orange":      {R: 0xff, G: 0xa5, A: 0xff},
	"gray":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"transparent": {},
}

// ParseColor parses #rgb, #rrggbb, #rrggbbaa (the # is optional) or a basic
// color name.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	hex := "#" + strings.TrimPrefix(s, "#")

	alpha := uint8(0xff)
	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		alpha = uint8(a)
		hex = hex[:7]
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	r, g, b := c.RGB255()
	if alpha == 0xff {
		return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
	}
	return color.RGBAModel.Convert(color.NRGBA{R: r, G: g, B: b, A: alpha}).(color.RGBA), nil
}

// FormatColor renders c as #rrggbb, or #rrggbbaa when it is not opaque.
func FormatColor(c color.RGBA) string {
	if c.A == 0xff {
		cf, _ := colorful.MakeColor(c)
		return cf.Hex()
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

func parseOptional(s *string) (*color.RGBA, error) {
	if s == nil {
		return nil, nil
	}
	c, err := ParseColor(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func pick(cs ...*color.RGBA) *color.RGBA {
	for _, c := range cs {
		if c != nil {
			return c
		}
	}
	return nil
}
