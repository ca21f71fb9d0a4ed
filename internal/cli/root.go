// Package cli provides the command-line interface for irlog.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/internal/cli/commands"
	"github.com/ccollicutt/irlog/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, NewRootCommand(), os.Args[1:], plugins.DefaultFinder())
}

func run(ctx context.Context, rootCmd *cobra.Command, args []string, finder *plugins.Finder) int {
	// an unknown first argument that isn't a flag may be a plugin
	pluginCandidate := ""
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' && !isBuiltinCommand(rootCmd, args[0]) {
		pluginCandidate = args[0]
		if pluginPath, err := finder.Find(pluginCandidate); err == nil {
			return plugins.Execute(ctx, pluginPath, args[1:], plugins.Stdio{
				In:  rootCmd.InOrStdin(),
				Out: rootCmd.OutOrStdout(),
				Err: rootCmd.ErrOrStderr(),
			})
		}
	}

	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if pluginCandidate != "" {
			_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), plugins.FormatNotFoundError(pluginCandidate))
			return 2
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "irlog",
		Short: "Capture and parse IR camera IRLogger output",
		Long: `irlog captures the log stream written by an IR camera SDK's IRLogger and turns
it into structured records.

The stream is reassembled line by line in a fixed-size buffer:
  - Each line becomes a record with a severity and a [file:line] message
  - Malformed lines are reported as warn records
  - Lines longer than the buffer are flushed and reported as an overflow

Sources can be a FIFO the IRLogger writes to, a log file (followed as it
grows), stdin, or previously captured files.

ENVIRONMENT:
  IRLOG_SOURCE_PATH, IRLOG_BUFFER_SIZE, IRLOG_MIN_LEVEL override the
  configuration file. Use --env-file to load them from a file.

PLUGINS:
  irlog supports plugins for extended functionality. Plugins are standalone
  binaries named irlog-<command> that are automatically discovered and invoked.

  Plugin locations (searched in order):
    1. $IRLOG_PLUGIN_DIR
    2. Same directory as the irlog binary
    3. ~/.irlog/plugins/
    4. Anywhere in PATH`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.AddGlobalFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewFollowCommand())
	rootCmd.AddCommand(commands.NewMockCommand())
	rootCmd.AddCommand(commands.NewPathsCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewPluginsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
