package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hagronnestad/code-deck/internal/app"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build every plugin",
	Long: `Build every plugin found in the plugin directories and print the
diagnostics of those that fail. Plugins whose artifact still matches its
sources are reused.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	results, err := app.Prebuild(ctx, opts.Plugins(), app.WithComponent(app.LoggerFrom(ctx), "build"))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(out, "no plugins found in %v\n", opts.Plugins())
		return nil
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			printFail(out, "%s\n", r.Plugin)
			diags := r.Diagnostics()
			if len(diags) == 0 {
				fmt.Fprintf(out, "      %v\n", r.Err)
			}
			for _, d := range diags {
				fmt.Fprintf(out, "      %s\n", d)
			}
		case r.Artifact.Reused:
			printOK(out, "%s (up to date)\n", r.Plugin)
		default:
			printOK(out, "%s\n", r.Plugin)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d plugins failed to build", failed, len(results))
	}
	return nil
}
