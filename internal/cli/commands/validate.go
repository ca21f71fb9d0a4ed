package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate an irlog configuration file without capturing anything.

Checks:
  - YAML syntax
  - Required fields
  - Source type and path requirements
  - Buffer size range
  - Webhook URLs and triggers
  - Source path existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	path, err := cfg.ResolveSourcePath()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if path == "" {
		path = "-"
	}
	dated := ""
	if cfg.Source.Dated {
		dated = " (dated prefix)"
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Source:      %s %s%s\n", cfg.Source.Type, path, dated)
	fmt.Fprintf(out, "  Buffer size: %s (%d bytes)\n", humanize.IBytes(uint64(cfg.BufferBytes())), cfg.BufferBytes())
	fmt.Fprintf(out, "  Output:      %s, min level %s\n", cfg.Output.Format, cfg.Output.MinLevel)
	fmt.Fprintf(out, "  Webhooks:    %d\n", len(cfg.Webhooks))

	for i, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, wh.Trigger, name)
	}

	// source existence is a warning only: the IRLogger or follow may create it later
	if cfg.Source.Type != config.SourceStdin && !cfg.Source.Dated {
		if info, err := os.Stat(path); err != nil {
			fmt.Fprintf(out, "\nWarning: source %s does not exist yet\n", path)
		} else if cfg.Source.Type == config.SourceFIFO && info.Mode()&os.ModeNamedPipe == 0 {
			fmt.Fprintf(out, "\nWarning: source %s exists and is not a FIFO\n", path)
		}
	}

	return nil
}
