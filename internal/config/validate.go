package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural rules of a deck and returns every finding
// joined into one error, or nil.
func (d *Deck) Validate() error {
	if d == nil {
		return &ValidationError{Message: "deck is nil"}
	}

	var errs []error
	add := func(where, format string, args ...any) {
		errs = append(errs, &ValidationError{Where: where, Message: fmt.Sprintf(format, args...)})
	}

	if d.Brightness < 0 || d.Brightness > 100 {
		add("deck", "brightness %d outside 0..100", d.Brightness)
	}

	profiles := make(map[string]bool, len(d.Profiles))
	for _, p := range d.Profiles {
		where := fmt.Sprintf("profile %q", p.Name)
		if p.Name == "" {
			add(where, "name is empty")
		}
		if profiles[p.Name] {
			add(where, "duplicate profile name")
		}
		profiles[p.Name] = true

		switch p.Type() {
		case ProfileNormal, ProfileLockScreen:
		default:
			add(where, "unknown profile type %q", p.ProfileType)
		}

		pages := make(map[string]bool, len(p.Pages))
		for _, pg := range p.Pages {
			pwhere := fmt.Sprintf("%s page %q", where, pg.Name)
			if pg.Name == "" {
				add(pwhere, "name is empty")
			}
			if pages[pg.Name] {
				add(pwhere, "duplicate page name")
			}
			pages[pg.Name] = true

			indexes := make(map[int]bool, len(pg.Keys))
			for _, k := range pg.Keys {
				kwhere := fmt.Sprintf("%s key %d", pwhere, k.Index)
				if k.Index < 0 {
					add(kwhere, "negative index")
				}
				if indexes[k.Index] {
					add(kwhere, "duplicate key index")
				}
				indexes[k.Index] = true
				errs = append(errs, d.validateKey(kwhere, k)...)
			}
		}
	}

	names := make(map[string]bool, len(d.Plugins))
	for _, pc := range d.Plugins {
		if pc.Name == "" {
			add("plugins", "plugin configuration without a name")
			continue
		}
		if names[pc.Name] {
			add("plugins", "duplicate configuration for plugin %q", pc.Name)
		}
		names[pc.Name] = true
	}

	return errors.Join(errs...)
}

func (d *Deck) validateKey(where string, k Key) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, &ValidationError{Where: where, Message: fmt.Sprintf(format, args...)})
	}

	if (k.Plugin == "") != (k.Tile == "") {
		add("plugin and tile must be set together")
	}
	if k.FontSize != nil && *k.FontSize <= 0 {
		add("font size must be positive")
	}
	if k.ImagePadding != nil && *k.ImagePadding < 0 {
		add("image padding must not be negative")
	}

	switch k.Type() {
	case KeyNormal, KeyBack:
	case KeyPage:
		if k.Profile == "" || k.Page == "" {
			add("page key needs profile and page")
		} else if _, ok := d.FindPage(k.Profile, k.Page); !ok {
			add("target page %q/%q does not exist", k.Profile, k.Page)
		}
	default:
		add("unknown key type %q", k.KeyType)
	}
	return errs
}
