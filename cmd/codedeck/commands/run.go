package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hagronnestad/code-deck/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the deck",
	Long: `Run the deck until interrupted.

The deck file is created with a default layout if it does not exist. Saving
it, or sending SIGHUP, reloads every key. SIGUSR1 shows the lock screen
profile and SIGUSR2 leaves it.

With the terminal device the deck is drawn in the terminal: press keys with
1-0, q-p, a-; and z-/ or the mouse, and leave with Esc or Ctrl-C. Logs go to
codedeck.log next to the deck file unless --log-file is given.

Examples:
  # Run with the default deck file
  codedeck run

  # Run a YAML deck with extra plugins
  codedeck run --config ~/decks/work.yaml --plugins ~/decks/plugins`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, closer, err := app.OpenLogger(opts)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer closer.Close()

	a, err := app.New(opts, app.WithLogger(logger))
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(app.ContextWithLogger(cmd.Context(), logger))
}
