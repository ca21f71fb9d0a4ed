package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/pkg/irpath"
)

// DefaultLogPrefix is the IRLogger log file prefix shown by the paths command.
const DefaultLogPrefix = "irlogger"

// NewPathsCommand creates the paths command.
func NewPathsCommand() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the IRLogger FIFO and log file paths",
		Long: `Print the default FIFO path used when a fifo source has no path, and the
dated log file name the IRLogger would use for a prefix right now.

The FIFO directory is created under $XDG_RUNTIME_DIR, falling back to the
system temp directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			socket, err := irpath.DefaultSocketPath()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "FIFO: %s\n", socket)
			fmt.Fprintf(out, "Log:  %s\n", irpath.LogPath(prefix, time.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", DefaultLogPrefix, "IRLogger log file prefix")

	return cmd
}
