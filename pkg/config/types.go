// Package config provides configuration loading and validation for irlog.
package config

import (
	"time"

	"github.com/ccollicutt/irlog/pkg/irlogger"
	"github.com/ccollicutt/irlog/pkg/webhook"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Source SourceConfig `yaml:"source"`

	// BufferSize is the parser's buffer size as a human readable size, e.g. "1MiB".
	// It is also the longest line that can be reassembled.
	BufferSize string `yaml:"buffer_size" validate:"required"`

	Output   OutputConfig    `yaml:"output"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" validate:"dive"`

	// bufferBytes is BufferSize in bytes (populated during validation).
	bufferBytes int
}

// BufferBytes returns the validated buffer size in bytes.
func (c *Config) BufferBytes() int {
	return c.bufferBytes
}

// SourceType selects where the stream is read from.
type SourceType string

const (
	SourceFIFO  SourceType = "fifo"
	SourceFile  SourceType = "file"
	SourceStdin SourceType = "stdin"
)

// SourceConfig defines the byte source.
type SourceConfig struct {
	Type SourceType `yaml:"type" validate:"oneof=fifo file stdin"`

	// Path is the FIFO or file. An empty FIFO path means the default socket path.
	Path string `yaml:"path,omitempty"`

	// Dated treats Path as an IRLogger prefix and reads the dated file it
	// derives from it, e.g. prefix_18_9_2023_21-27-53.log.
	Dated bool `yaml:"dated,omitempty"`

	// ChunkSize is the read size in bytes. Zero means the default.
	ChunkSize int `yaml:"chunk_size,omitempty" validate:"gte=0,lte=1048576"`
}

// OutputConfig controls how records are written.
type OutputConfig struct {
	Format     string            `yaml:"format" validate:"oneof=text json"`
	MinLevel   irlogger.Severity `yaml:"min_level"`
	Timestamps bool              `yaml:"timestamps,omitempty"`
}

// WebhookConfig defines a webhook endpoint for sending ingestion summaries.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" validate:"required,url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_issues" if not specified.
	Trigger webhook.Trigger `yaml:"trigger,omitempty" validate:"omitempty,oneof=on_issues always never"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`

	// unsetTokenVars lists variables in Token that were unset at validation.
	unsetTokenVars []string
}

// UnsetTokenVars returns the variables referenced by Token that were not set
// when the configuration was validated.
func (w WebhookConfig) UnsetTokenVars() []string {
	return w.unsetTokenVars
}

// Target converts the webhook configuration for the webhook client.
func (w WebhookConfig) Target() webhook.Target {
	return webhook.Target{
		Name:    w.Name,
		URL:     w.URL,
		Token:   w.Token,
		Trigger: w.Trigger,
		Timeout: w.Timeout,
	}
}
