package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a deck file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Decode parses a deck. Fields the document omits keep their defaults.
func Decode(format Format, data []byte) (*Deck, error) {
	deck := &Deck{Brightness: DefaultBrightness}
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, deck)
	case FormatYAML:
		err = yaml.Unmarshal(data, deck)
	case FormatJSON:
		err = json.Unmarshal(data, deck)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return deck, nil
}

// Encode serializes a deck.
func Encode(format Format, deck *Deck) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(deck)
	case FormatYAML:
		return yaml.Marshal(deck)
	case FormatJSON:
		data, err := json.MarshalIndent(deck, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Store reads a deck file from disk.
type Store struct {
	path   string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store for the deck file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "config")
	return s
}

// Path returns the deck file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads, decodes and validates the deck file. A missing file is
// replaced by the default deck, which is written to disk first.
func (s *Store) Load() (*Deck, error) {
	format, err := FormatOf(s.path)
	if err != nil {
		return nil, err
	}

	if _, err := s.EnsureExists(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", s.path, err)
	}

	deck, err := Decode(format, data)
	if err != nil {
		return nil, &ParseError{Path: s.path, Err: err}
	}
	if err := deck.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return deck, nil
}

// EnsureExists writes the default deck if the file is missing. It reports
// whether the file was created.
func (s *Store) EnsureExists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("reading config file %s: %w", s.path, err)
	}
	s.logger.Warn("config file missing, writing default", "path", s.path)
	if err := s.Save(Default()); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes a deck in the store's format through a temp file and rename.
func (s *Store) Save(deck *Deck) error {
	format, err := FormatOf(s.path)
	if err != nil {
		return err
	}
	data, err := Encode(format, deck)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
