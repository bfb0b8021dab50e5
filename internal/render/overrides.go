package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/hagronnestad/code-deck/internal/config"
)

// Overrides are the per-key values from the deck file that take precedence
// over what a tile reports.
type Overrides struct {
	TextColor       *color.RGBA
	BackgroundColor *color.RGBA
	IndicatorColor  *color.RGBA
	Image           image.Image

	FolderIndicator      bool
	FolderIndicatorColor *color.RGBA

	Bold        bool
	Italic      bool
	LineSpacing float64
}

// OverridesFromKey builds overrides from a configured key and its already
// loaded image. Colors that fail to parse are left unset and reported.
func OverridesFromKey(k config.Key, img image.Image) (Overrides, error) {
	o := Overrides{
		Image:           img,
		FolderIndicator: k.FolderIndicator(),
	}
	if k.FontBold != nil {
		o.Bold = *k.FontBold
	}
	if k.FontItalic != nil {
		o.Italic = *k.FontItalic
	}
	if k.LineSpacing != nil {
		o.LineSpacing = *k.LineSpacing
	}

	var errs []error
	set := func(dst **color.RGBA, field string, s *string) {
		c, err := parseOptional(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*dst = c
	}
	set(&o.TextColor, "textColor", k.TextColor)
	set(&o.BackgroundColor, "backgroundColor", k.BackgroundColor)
	set(&o.IndicatorColor, "activityIndicatorColor", k.ActivityIndicatorColor)
	set(&o.FolderIndicatorColor, "folderIndicatorColor", k.FolderIndicatorColor)

	return o, errors.Join(errs...)
}

// CheckColors parses every color in a deck and reports the ones that fail.
func CheckColors(deck *config.Deck) error {
	var errs []error
	for _, fk := range deck.Flatten() {
		if _, err := OverridesFromKey(fk.Key, nil); err != nil {
			errs = append(errs, fmt.Errorf("profile %q page %q key %d: %w", fk.Profile, fk.Page, fk.Key.Index, err))
		}
	}
	return errors.Join(errs...)
}
