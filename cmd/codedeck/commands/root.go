package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hagronnestad/code-deck/internal/app"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// v holds the process options: flags, CODEDECK_ environment and
	// defaults.
	v = app.NewViper()

	// opts is loaded from v before any subcommand runs.
	opts app.Options
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codedeck",
	Short: "CodeDeck - a programmable macro key deck",
	Long: `CodeDeck drives a grid of display keys from a deck file. Each key shows
text, colors and images, and can be bound to a tile from a Lua plugin that
reacts to presses and updates the key while it runs.

The deck file is watched: saving it reloads every key. Plugins are rebuilt
automatically when their sources change.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		o, err := app.LoadOptions(v)
		if err != nil {
			return err
		}
		opts = o

		cfg := app.DefaultLoggerConfig()
		cfg.Level = app.ParseLogLevel(opts.LogLevel)
		cfg.Format = app.LogFormat(opts.LogFormat)
		cfg.Output = cmd.ErrOrStderr()
		cmd.SetContext(app.ContextWithLogger(cmd.Context(), app.NewLogger(cfg)))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	if err := app.BindFlags(rootCmd.PersistentFlags(), v); err != nil {
		panic(err)
	}
}
