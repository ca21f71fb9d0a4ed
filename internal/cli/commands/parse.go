package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/pkg/config"
	"github.com/ccollicutt/irlog/pkg/irlogger"
	"github.com/ccollicutt/irlog/pkg/output"
	"github.com/ccollicutt/irlog/pkg/source"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Output     string
	MinLevel   string
	BufferSize string
	ChunkSize  int
	Timestamps bool
	Summary    bool
	Quiet      bool

	Webhook WebhookFlags
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Parse captured IRLogger output",
		Long: `Parse IRLogger output from files, or from stdin when no file (or "-") is given.

Files are read in order through a single parser, as one continuous stream.
Glob patterns such as 'irlogger_*.log' are expanded.

Malformed lines and buffer overflows are reported as warn records.

Exit codes:
  0 - Stream parsed cleanly
  1 - Parse failures or buffer overflows
  2 - Configuration or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", config.DefaultFormat, "Output format (text|json)")
	cmd.Flags().StringVar(&opts.MinLevel, "min-level", "debug", "Lowest severity to print (trace|debug|info|warn|error|critical)")
	cmd.Flags().StringVar(&opts.BufferSize, "buffer-size", config.DefaultBufferSize, "Parser buffer size, also the longest line kept (e.g. 64KiB)")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", source.DefaultChunkSize, "Read size in bytes")
	cmd.Flags().BoolVar(&opts.Timestamps, "timestamps", false, "Prefix records with the time they were parsed")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "Print an ingestion summary after the records")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary line only, no records")
	opts.Webhook.register(cmd)

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := commandContext(cmd)
	logger := commandLogger(cmd)
	started := time.Now()

	minLevel, err := irlogger.ParseSeverity(opts.MinLevel)
	if err != nil {
		return fmt.Errorf("invalid min-level: %w", err)
	}
	bufferSize, err := config.ParseBufferSize(opts.BufferSize)
	if err != nil {
		return fmt.Errorf("invalid buffer-size: %w", err)
	}
	targets, err := opts.Webhook.target()
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Timestamps: opts.Timestamps,
		Quiet:      opts.Quiet,
	})
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{source.Stdin}
	}
	files, err := source.ExpandGlobs(args)
	if err != nil {
		return fmt.Errorf("expanding inputs: %w", err)
	}

	out := cmd.OutOrStdout()
	counter := output.NewCountingSink()
	var sink irlogger.Sink = counter
	var records *output.WriterSink
	if !opts.Quiet {
		records = output.NewWriterSink(out, formatter, minLevel)
		sink = output.MultiSink(records, counter)
	}

	parser, err := irlogger.New(sink, irlogger.WithBufferSize(bufferSize))
	if err != nil {
		return err
	}

	sourceOpts := []source.Option{
		source.WithChunkSize(opts.ChunkSize),
		source.WithLogger(logger),
	}
	for _, file := range files {
		if err := parseFile(cmd, file, parser, sourceOpts); err != nil {
			return err
		}
	}

	if records != nil && records.Err() != nil {
		return fmt.Errorf("writing records: %w", records.Err())
	}

	report := output.NewReport(parser.Stats(), counter.Counts(), output.Metadata{
		Sources:    files,
		BufferSize: bufferSize,
		StartedAt:  started,
		Duration:   time.Since(started),
	})

	if opts.Summary || opts.Quiet {
		if err := formatter.FormatReport(ctx, report, out); err != nil {
			return fmt.Errorf("formatting summary: %w", err)
		}
	}

	sendWebhooks(ctx, targets, report, logger)
	setExitCode(report)
	return nil
}

func parseFile(cmd *cobra.Command, file string, dst source.Pusher, opts []source.Option) error {
	var r io.Reader = cmd.InOrStdin()
	if file != source.Stdin {
		f, err := os.Open(file) // #nosec G304 -- user-provided log paths are expected
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if _, err := source.Pump(commandContext(cmd), r, dst, opts...); err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	return nil
}
