package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hagronnestad/code-deck/internal/app"
)

var pluginsJSON bool

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List discovered plugins",
	Long: `List every plugin found in the plugin directories with the state of its
build artifact: built, stale (sources changed since the last build), unbuilt,
or no sources. Nothing is built.

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runPlugins,
}

func init() {
	pluginsCmd.Flags().BoolVar(&pluginsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(pluginsCmd)
}

type pluginRow struct {
	Name     string `json:"name"`
	Dir      string `json:"dir"`
	State    string `json:"state"`
	Artifact string `json:"artifact,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runPlugins(cmd *cobra.Command, args []string) error {
	statuses, err := app.ListPlugins(opts.Plugins())
	if err != nil {
		return err
	}

	rows := make([]pluginRow, 0, len(statuses))
	for _, st := range statuses {
		row := pluginRow{Name: st.Name, Dir: st.Dir, State: st.State}
		if !st.Artifact.BuiltAt.IsZero() {
			row.Artifact = st.Artifact.Path
		}
		if st.Err != nil {
			row.Error = st.Err.Error()
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	if pluginsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintf(out, "no plugins found in %v\n", opts.Plugins())
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tDIR")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.State, r.Dir)
	}
	return tw.Flush()
}
