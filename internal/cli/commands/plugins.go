package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/internal/cli/plugins"
)

// NewPluginsCommand creates the plugins command.
func NewPluginsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List installed plugins",
		Long: `List the irlog-<command> plugins installed in $IRLOG_PLUGIN_DIR, next to
the irlog binary, and in ~/.irlog/plugins. Plugins on PATH also run but are
not listed.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			listPlugins(cmd, plugins.DefaultFinder())
		},
	}
}

func listPlugins(cmd *cobra.Command, finder *plugins.Finder) {
	out := cmd.OutOrStdout()
	names := finder.List()
	if len(names) == 0 {
		fmt.Fprintln(out, "No plugins installed.")
		return
	}
	for _, name := range names {
		path, _ := finder.Find(name)
		fmt.Fprintf(out, "%-12s %s\n", name, path)
	}
}
