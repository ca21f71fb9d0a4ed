package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/irlog/pkg/logging"
	"github.com/ccollicutt/irlog/pkg/output"
	"github.com/ccollicutt/irlog/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	LogLevel  string
	LogFormat string
	EnvFile   string
}

// AddGlobalFlags registers the persistent flags on root and installs the hook
// that loads the env file and builds the diagnostics logger.
func AddGlobalFlags(root *cobra.Command) {
	opts := &GlobalOptions{}

	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "Diagnostics log level (trace|debug|info|warn|error)")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "console", "Diagnostics log format (console|json)")
	root.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "Load environment variables (e.g. IRLOG_*) from a file")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.apply(cmd)
	}
}

func (o *GlobalOptions) apply(cmd *cobra.Command) error {
	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}

	level, err := logging.ParseLevel(o.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(o.LogFormat)
	if err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), level, format)
	cmd.SetContext(logger.WithContext(commandContext(cmd)))
	return nil
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// commandLogger returns the logger installed by AddGlobalFlags. Commands run
// without the root command get an info level console logger on stderr.
func commandLogger(cmd *cobra.Command) zerolog.Logger {
	if logger := zerolog.Ctx(commandContext(cmd)); logger.GetLevel() != zerolog.Disabled {
		return *logger
	}
	return logging.New(cmd.ErrOrStderr(), zerolog.InfoLevel, logging.FormatConsole)
}

// WebhookFlags are the flags for a one-off webhook given on the command line.
type WebhookFlags struct {
	URL     string
	Token   string
	Trigger string
}

func (f *WebhookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.URL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&f.Token, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&f.Trigger, "webhook-trigger", string(webhook.TriggerOnIssues), "When to fire webhook (on_issues|always|never)")
}

// target returns the command line webhook, if one was given.
func (f *WebhookFlags) target() ([]webhook.Target, error) {
	if f.URL == "" {
		return nil, nil
	}
	trigger, err := webhook.ParseTrigger(f.Trigger)
	if err != nil {
		return nil, err
	}
	return []webhook.Target{{
		Name:    "cli",
		URL:     f.URL,
		Token:   os.ExpandEnv(f.Token),
		Trigger: trigger,
		Timeout: webhook.DefaultTimeout,
	}}, nil
}

// sendWebhooks delivers the report. Errors are logged but don't fail the command.
func sendWebhooks(ctx context.Context, targets []webhook.Target, report *output.Report, logger zerolog.Logger) {
	if len(targets) == 0 {
		return
	}
	// the run may have ended because ctx was cancelled
	webhook.NewClient().Notify(context.WithoutCancel(ctx), targets, report, logger)
}

// setExitCode marks runs whose stream had issues.
func setExitCode(report *output.Report) {
	if report.HasIssues() {
		ExitCode = 1
	}
}
