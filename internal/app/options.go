package app

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hagronnestad/code-deck/internal/config/watcher"
)

// EnvPrefix prefixes the environment variables that override options,
// e.g. CODEDECK_LOG_LEVEL.
const EnvPrefix = "CODEDECK"

// Device backends.
const (
	DeviceTerminal = "terminal"
	DeviceMemory   = "memory"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the deck file. Its extension selects the format.
	ConfigPath string

	// PluginPaths are the plugin search directories. Empty means a
	// plugins directory next to the deck file.
	PluginPaths []string

	// Device is the device backend.
	Device string

	// LogLevel sets the logging verbosity.
	LogLevel string

	// LogFormat is text or json.
	LogFormat string

	// LogFile receives logs instead of stderr. The terminal device needs
	// the screen, so it defaults to a file next to the deck file.
	LogFile string

	// Debounce is the quiet period before a deck file change reloads.
	Debounce time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ConfigPath: defaultConfigPath(),
		Device:     DeviceTerminal,
		LogLevel:   LogLevelInfo.String(),
		LogFormat:  string(LogFormatText),
		Debounce:   watcher.DefaultDebounce,
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "deck.toml"
	}
	return filepath.Join(dir, "codedeck", "deck.toml")
}

// NewViper returns a viper instance seeded with defaults and reading
// CODEDECK_ environment overrides.
func NewViper() *viper.Viper {
	d := DefaultOptions()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("config", d.ConfigPath)
	v.SetDefault("plugins", d.PluginPaths)
	v.SetDefault("device", d.Device)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("log-file", d.LogFile)
	v.SetDefault("debounce", d.Debounce)
	return v
}

// BindFlags registers the option flags on fs and binds them into v. A flag
// set on the command line wins over the environment, which wins over the
// default.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := DefaultOptions()
	fs.StringP("config", "c", d.ConfigPath, "deck file (.toml, .yaml or .json)")
	fs.StringSlice("plugins", d.PluginPaths, "plugin search directories (default: plugins next to the deck file)")
	fs.String("device", d.Device, "device backend: terminal or memory")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.String("log-format", d.LogFormat, "log format: text or json")
	fs.String("log-file", d.LogFile, "write logs to this file instead of stderr")
	fs.Duration("debounce", d.Debounce, "quiet period before a deck file change is applied")
	return v.BindPFlags(fs)
}

// LoadOptions reads the options from v and validates them.
func LoadOptions(v *viper.Viper) (Options, error) {
	o := Options{
		ConfigPath:  v.GetString("config"),
		PluginPaths: splitPaths(v.GetStringSlice("plugins")),
		Device:      strings.ToLower(v.GetString("device")),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   strings.ToLower(v.GetString("log-format")),
		LogFile:     v.GetString("log-file"),
		Debounce:    v.GetDuration("debounce"),
	}
	return o, o.Validate()
}

// splitPaths also accepts an OS path list, as CODEDECK_PLUGINS=a:b arrives
// as a single element.
func splitPaths(in []string) []string {
	var out []string
	for _, p := range in {
		for _, part := range filepath.SplitList(p) {
			for _, s := range strings.Split(part, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.ConfigPath == "" {
		return fmt.Errorf("%w: empty config path", ErrInvalidOptions)
	}
	if !slices.Contains([]string{DeviceTerminal, DeviceMemory}, o.Device) {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, o.Device)
	}
	if o.LogFormat != string(LogFormatText) && o.LogFormat != string(LogFormatJSON) {
		return fmt.Errorf("%w: log format %q", ErrInvalidOptions, o.LogFormat)
	}
	if o.Debounce < 0 {
		return fmt.Errorf("%w: negative debounce", ErrInvalidOptions)
	}
	return nil
}

// Plugins returns the plugin search directories.
func (o Options) Plugins() []string {
	if len(o.PluginPaths) > 0 {
		return o.PluginPaths
	}
	return []string{filepath.Join(filepath.Dir(o.ConfigPath), "plugins")}
}

// BaseDir is the directory relative key images resolve against.
func (o Options) BaseDir() string {
	return filepath.Dir(o.ConfigPath)
}

// LogDestination returns where logs go. An empty result means stderr.
func (o Options) LogDestination() string {
	if o.LogFile != "" {
		return o.LogFile
	}
	if o.Device == DeviceTerminal {
		return filepath.Join(o.BaseDir(), "codedeck.log")
	}
	return ""
}
