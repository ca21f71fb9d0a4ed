package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/pkg/capture"
	"github.com/ccollicutt/irlog/pkg/config"
	"github.com/ccollicutt/irlog/pkg/irlogger"
	"github.com/ccollicutt/irlog/pkg/irpath"
	"github.com/ccollicutt/irlog/pkg/mock"
	"github.com/ccollicutt/irlog/pkg/output"
	"github.com/ccollicutt/irlog/pkg/source"
	"github.com/ccollicutt/irlog/pkg/webhook"
)

// captures allows one live capture per process.
var captures = capture.NewRegistry()

// FollowOptions holds command-line options for the follow command.
type FollowOptions struct {
	Mock         bool
	MockCount    int
	MockInterval time.Duration
	Duration     time.Duration
	Summary      bool
	LogRecords   bool
}

// NewFollowCommand creates the follow command.
func NewFollowCommand() *cobra.Command {
	opts := &FollowOptions{}

	cmd := &cobra.Command{
		Use:   "follow <config-file>",
		Short: "Capture IRLogger output live",
		Long: `Capture IRLogger output from the source defined in the configuration file
and print records as they arrive, until interrupted.

Sources:
  fifo  - a named pipe the IRLogger writes to (created if missing)
  file  - a log file, followed as it grows and when it is recreated
  stdin - standard input until EOF

With --mock, a simulated IRLogger writes into the fifo or file source.
With --log-records, records are also logged through the diagnostics logger
with component=irlogger.

Exit codes:
  0 - Stream parsed cleanly
  1 - Parse failures or buffer overflows
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollow(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Mock, "mock", false, "Also run a simulated IRLogger writing into the source")
	cmd.Flags().IntVar(&opts.MockCount, "mock-count", mock.DefaultCount, "Lines written by --mock")
	cmd.Flags().DurationVar(&opts.MockInterval, "mock-interval", mock.DefaultInterval, "Delay between --mock lines")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "Print an ingestion summary when the capture ends")
	cmd.Flags().BoolVar(&opts.LogRecords, "log-records", false, "Also forward records to the diagnostics logger")

	return cmd
}

func runFollow(cmd *cobra.Command, configPath string, opts *FollowOptions) error {
	ctx := commandContext(cmd)
	logger := commandLogger(cmd)
	started := time.Now()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.Mock && cfg.Source.Type == config.SourceStdin {
		return errors.New("--mock needs a fifo or file source")
	}

	path, err := resolveSourcePath(ctx, cfg)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(cfg.Output.Format, output.FormatOptions{
		Timestamps: cfg.Output.Timestamps,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	records := output.NewWriterSink(out, formatter, cfg.Output.MinLevel)
	counter := output.NewCountingSink()
	sinks := []irlogger.Sink{records, counter}
	if opts.LogRecords {
		sinks = append(sinks, output.NewZerologSink(logger, cfg.Output.MinLevel))
	}

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	sourceOpts := []source.Option{
		source.WithChunkSize(cfg.Source.ChunkSize),
		source.WithLogger(logger),
	}
	var src capture.SourceFunc
	switch cfg.Source.Type {
	case config.SourceFIFO:
		src = capture.FIFOSource(path, sourceOpts...)
	case config.SourceFile:
		src = capture.FileSource(path, sourceOpts...)
	default:
		src = capture.ReaderSource(cmd.InOrStdin(), sourceOpts...)
	}

	c, err := capture.Start(ctx, captures, capture.Config{
		Owner:      "follow",
		Source:     src,
		BufferSize: cfg.BufferBytes(),
		Logger:     logger,
	}, output.MultiSink(sinks...))
	if err != nil {
		return err
	}
	logger.Info().Str("source", string(cfg.Source.Type)).Str("path", path).Msg("Following IRLogger output")

	var mockDone <-chan error
	mockCtx, stopMock := context.WithCancel(ctx)
	defer stopMock()
	if opts.Mock {
		mockDone = startMock(mockCtx, cfg.Source.Type, path, opts, logger)
	}

	captureErr := c.Wait()
	stopMock()
	if mockDone != nil {
		if err := <-mockDone; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logger.Warn().Err(err).Msg("Mock IRLogger failed")
		}
	}
	if captureErr != nil {
		return fmt.Errorf("capture failed: %w", captureErr)
	}
	if err := records.Err(); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}

	sourceName := path
	if cfg.Source.Type == config.SourceStdin {
		sourceName = source.Stdin
	}
	report := output.NewReport(c.Stats(), counter.Counts(), output.Metadata{
		ConfigFile: configPath,
		Sources:    []string{sourceName},
		BufferSize: cfg.BufferBytes(),
		StartedAt:  started,
		Duration:   time.Since(started),
	})

	if opts.Summary {
		if err := formatter.FormatReport(ctx, report, out); err != nil {
			return fmt.Errorf("formatting summary: %w", err)
		}
	}

	targets := make([]webhook.Target, 0, len(cfg.Webhooks))
	for _, wh := range cfg.Webhooks {
		targets = append(targets, wh.Target())
	}
	sendWebhooks(ctx, targets, report, logger)
	setExitCode(report)
	return nil
}

// resolveSourcePath applies the default FIFO path and, for dated sources, the
// IRLogger's per-second file name.
func resolveSourcePath(ctx context.Context, cfg *config.Config) (string, error) {
	path, err := cfg.ResolveSourcePath()
	if err != nil {
		return "", fmt.Errorf("resolving source path: %w", err)
	}
	if !cfg.Source.Dated {
		return path, nil
	}

	path, err = irpath.LogPathNow(ctx, clock.WallClock, path)
	if err != nil {
		return "", fmt.Errorf("resolving dated source path: %w", err)
	}
	return path, nil
}

// startMock runs a mock IRLogger writing into path and reports its result on
// the returned channel.
func startMock(ctx context.Context, typ config.SourceType, path string, opts *FollowOptions, logger zerolog.Logger) <-chan error {
	done := make(chan error, 1)
	w := &mock.Writer{
		Interval: opts.MockInterval,
		Count:    opts.MockCount,
	}

	go func() {
		if typ != config.SourceFIFO {
			done <- w.RunFile(ctx, path)
			return
		}

		// a read/write handle never blocks waiting for the capture to open the fifo
		f, err := source.OpenFIFO(path)
		if err != nil {
			done <- err
			return
		}
		defer f.Close()
		logger.Debug().Str("path", path).Msg("Mocking IRLogger output")
		done <- w.Run(ctx, f)
	}()

	return done
}
