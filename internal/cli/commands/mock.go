package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/pkg/irpath"
	"github.com/ccollicutt/irlog/pkg/mock"
)

// MockOptions holds command-line options for the mock command.
type MockOptions struct {
	Count    int
	Interval time.Duration
	Dated    bool
}

// NewMockCommand creates the mock command.
func NewMockCommand() *cobra.Command {
	opts := &MockOptions{}

	cmd := &cobra.Command{
		Use:   "mock [path]",
		Short: "Write simulated IRLogger output",
		Long: `Write simulated IRLogger output to path, or to stdout when no path is given.

The path may be a regular file (appended to) or a FIFO that irlog follow reads.
With --dated, path is a prefix and the IRLogger's dated file name is used.

Example:
  irlog mock --count 10 --interval 100ms
  irlog mock --dated /tmp/irlogger`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMock(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", mock.DefaultCount, "Number of debug lines to write")
	cmd.Flags().DurationVar(&opts.Interval, "interval", mock.DefaultInterval, "Delay between lines")
	cmd.Flags().BoolVar(&opts.Dated, "dated", false, "Treat path as a prefix for a dated log file")

	return cmd
}

func runMock(cmd *cobra.Command, args []string, opts *MockOptions) error {
	ctx := commandContext(cmd)

	if opts.Count < 1 {
		return fmt.Errorf("invalid count %d: must be at least 1", opts.Count)
	}
	if opts.Interval <= 0 {
		return fmt.Errorf("invalid interval %s: must be positive", opts.Interval)
	}
	if opts.Dated && len(args) == 0 {
		return errors.New("--dated needs a path prefix")
	}

	w := &mock.Writer{
		Interval: opts.Interval,
		Count:    opts.Count,
	}

	var err error
	if len(args) == 0 {
		err = w.Run(ctx, cmd.OutOrStdout())
	} else {
		path := args[0]
		if opts.Dated {
			if path, err = irpath.LogPathNow(ctx, clock.WallClock, path); err != nil {
				return err
			}
		}
		logger := commandLogger(cmd)
		logger.Info().Str("path", path).Msg("Mocking IRLogger output")
		err = w.RunFile(ctx, path)
	}

	if errors.Is(err, context.Canceled) {
		// interrupted
		return nil
	}
	return err
}
