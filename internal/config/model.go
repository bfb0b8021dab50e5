package config

import (
	"cmp"
	"slices"
	"strings"
)

// DefaultBrightness is applied when a deck file omits brightness.
const DefaultBrightness = 75

// ProfileType separates ordinary profiles from the lock screen.
type ProfileType string

const (
	ProfileNormal     ProfileType = "Normal"
	ProfileLockScreen ProfileType = "LockScreen"
)

// KeyType selects what a key press does.
type KeyType string

const (
	KeyNormal KeyType = "normal"
	KeyBack   KeyType = "back"
	KeyPage   KeyType = "page"
)

// Deck is the root of a deck file.
type Deck struct {
	DevicePath   string         `json:"devicePath,omitempty" toml:"devicePath,omitempty" yaml:"devicePath,omitempty"`
	Brightness   int            `json:"brightness" toml:"brightness" yaml:"brightness"`
	FallbackFont string         `json:"fallbackFont,omitempty" toml:"fallbackFont,omitempty" yaml:"fallbackFont,omitempty"`
	Profiles     []Profile      `json:"profiles" toml:"profiles" yaml:"profiles"`
	Plugins      []PluginConfig `json:"plugins,omitempty" toml:"plugins,omitempty" yaml:"plugins,omitempty"`
}

// Profile is a named set of pages.
type Profile struct {
	Name        string      `json:"name" toml:"name" yaml:"name"`
	ProfileType ProfileType `json:"profileType,omitempty" toml:"profileType,omitempty" yaml:"profileType,omitempty"`
	Pages       []Page      `json:"pages" toml:"pages" yaml:"pages"`
}

// Type returns the profile type, treating an empty value as Normal.
func (p Profile) Type() ProfileType {
	if p.ProfileType == "" {
		return ProfileNormal
	}
	return p.ProfileType
}

// Page is one screenful of keys.
type Page struct {
	Name string `json:"name" toml:"name" yaml:"name"`
	Keys []Key  `json:"keys" toml:"keys" yaml:"keys"`
}

// Key configures one physical key. Nil fields are unset and leave the
// tile's own value or the renderer default in place.
type Key struct {
	Index                  int               `json:"index" toml:"index" yaml:"index"`
	Text                   *string           `json:"text,omitempty" toml:"text,omitempty" yaml:"text,omitempty"`
	TextColor              *string           `json:"textColor,omitempty" toml:"textColor,omitempty" yaml:"textColor,omitempty"`
	BackgroundColor        *string           `json:"backgroundColor,omitempty" toml:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	Font                   *string           `json:"font,omitempty" toml:"font,omitempty" yaml:"font,omitempty"`
	FontSize               *float64          `json:"fontSize,omitempty" toml:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	FontBold               *bool             `json:"fontBold,omitempty" toml:"fontBold,omitempty" yaml:"fontBold,omitempty"`
	FontItalic             *bool             `json:"fontItalic,omitempty" toml:"fontItalic,omitempty" yaml:"fontItalic,omitempty"`
	LineSpacing            *float64          `json:"lineSpacing,omitempty" toml:"lineSpacing,omitempty" yaml:"lineSpacing,omitempty"`
	Image                  *string           `json:"image,omitempty" toml:"image,omitempty" yaml:"image,omitempty"`
	ImagePadding           *int              `json:"imagePadding,omitempty" toml:"imagePadding,omitempty" yaml:"imagePadding,omitempty"`
	ShowFolderIndicator    *bool             `json:"showFolderIndicator,omitempty" toml:"showFolderIndicator,omitempty" yaml:"showFolderIndicator,omitempty"`
	FolderIndicatorColor   *string           `json:"folderIndicatorColor,omitempty" toml:"folderIndicatorColor,omitempty" yaml:"folderIndicatorColor,omitempty"`
	ActivityIndicatorColor *string           `json:"activityIndicatorColor,omitempty" toml:"activityIndicatorColor,omitempty" yaml:"activityIndicatorColor,omitempty"`
	Plugin                 string            `json:"plugin,omitempty" toml:"plugin,omitempty" yaml:"plugin,omitempty"`
	Tile                   string            `json:"tile,omitempty" toml:"tile,omitempty" yaml:"tile,omitempty"`
	Settings               map[string]string `json:"settings,omitempty" toml:"settings,omitempty" yaml:"settings,omitempty"`
	KeyType                KeyType           `json:"keyType,omitempty" toml:"keyType,omitempty" yaml:"keyType,omitempty"`
	Profile                string            `json:"profile,omitempty" toml:"profile,omitempty" yaml:"profile,omitempty"`
	Page                   string            `json:"page,omitempty" toml:"page,omitempty" yaml:"page,omitempty"`
}

// Type returns the normalized key type. An empty value means normal.
func (k Key) Type() KeyType {
	if k.KeyType == "" {
		return KeyNormal
	}
	return KeyType(strings.ToLower(string(k.KeyType)))
}

// HasTile reports whether the key references a plugin tile.
func (k Key) HasTile() bool {
	return k.Plugin != "" && k.Tile != ""
}

// FolderIndicator reports whether a folder bar should be drawn.
func (k Key) FolderIndicator() bool {
	if k.ShowFolderIndicator != nil {
		return *k.ShowFolderIndicator
	}
	return k.Type() == KeyPage
}

// PluginConfig carries plugin-level settings.
type PluginConfig struct {
	Name     string            `json:"name" toml:"name" yaml:"name"`
	Settings map[string]string `json:"settings,omitempty" toml:"settings,omitempty" yaml:"settings,omitempty"`
}

// FlatKey is one key together with the frame it lives on.
type FlatKey struct {
	Profile string
	Page    string
	Key     Key
}

// Flatten lists every key of every page. Keys within a page are ordered by
// index; pages and profiles keep their file order.
func (d *Deck) Flatten() []FlatKey {
	if d == nil {
		return nil
	}
	var out []FlatKey
	for _, p := range d.Profiles {
		for _, pg := range p.Pages {
			keys := slices.Clone(pg.Keys)
			slices.SortStableFunc(keys, func(a, b Key) int { return cmp.Compare(a.Index, b.Index) })
			for _, k := range keys {
				out = append(out, FlatKey{Profile: p.Name, Page: pg.Name, Key: k})
			}
		}
	}
	return out
}

// FindProfile returns the named profile.
func (d *Deck) FindProfile(name string) (*Profile, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Profiles {
		if d.Profiles[i].Name == name {
			return &d.Profiles[i], true
		}
	}
	return nil, false
}

// FindPage returns the named page of the named profile.
func (d *Deck) FindPage(profile, page string) (*Page, bool) {
	p, ok := d.FindProfile(profile)
	if !ok {
		return nil, false
	}
	for i := range p.Pages {
		if p.Pages[i].Name == page {
			return &p.Pages[i], true
		}
	}
	return nil, false
}

// FirstNormalPage returns the first page of the first Normal profile that
// has pages.
func (d *Deck) FirstNormalPage() (profile, page string, ok bool) {
	return d.firstPage(ProfileNormal)
}

// LockScreen returns the first page of the first LockScreen profile that has
// pages.
func (d *Deck) LockScreen() (profile, page string, ok bool) {
	return d.firstPage(ProfileLockScreen)
}

func (d *Deck) firstPage(typ ProfileType) (string, string, bool) {
	if d == nil {
		return "", "", false
	}
	for _, p := range d.Profiles {
		if p.Type() == typ && len(p.Pages) > 0 {
			return p.Name, p.Pages[0].Name, true
		}
	}
	return "", "", false
}

// PluginSettings returns the settings configured for a plugin. Plugin names
// match case-insensitively. The result is nil when none are configured.
func (d *Deck) PluginSettings(name string) map[string]string {
	if d == nil {
		return nil
	}
	for _, pc := range d.Plugins {
		if strings.EqualFold(pc.Name, name) {
			return pc.Settings
		}
	}
	return nil
}

// PluginNames lists the distinct plugins referenced by keys, in first-use
// order.
func (d *Deck) PluginNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, fk := range d.Flatten() {
		if fk.Key.Plugin == "" || seen[fk.Key.Plugin] {
			continue
		}
		seen[fk.Key.Plugin] = true
		names = append(names, fk.Key.Plugin)
	}
	return names
}
