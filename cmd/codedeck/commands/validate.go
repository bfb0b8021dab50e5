package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hagronnestad/code-deck/internal/app"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a deck file",
	Long: `Parse and validate a deck file without running it. The file defaults to
--config. Colors are checked, and keys naming a plugin that cannot be found
are reported as warnings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := opts.ConfigPath
	if len(args) == 1 {
		path = args[0]
	}

	report, err := app.CheckDeck(path, opts.Plugins())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range report.Warnings {
		printWarning(out, "%s\n", w)
	}
	keys := len(report.Deck.Flatten())
	fmt.Fprintf(out, "%s: ok (%d profiles, %d keys)\n", path, len(report.Deck.Profiles), keys)
	return nil
}
