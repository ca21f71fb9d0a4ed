package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/ccollicutt/irlog/pkg/irlogger"
	"github.com/ccollicutt/irlog/pkg/irpath"
	"github.com/ccollicutt/irlog/pkg/webhook"
)

// Default values for configuration.
const (
	DefaultBufferSize     = "1MiB"
	DefaultFormat         = "text"
	DefaultWebhookTimeout = webhook.DefaultTimeout

	// MaxBufferSize bounds buffer_size.
	MaxBufferSize = 1 << 30
)

// Environment variables are read with this prefix; the rest of the name,
// lower-cased, is the override key.
const EnvPrefix = "IRLOG_"

// Environment variable names.
const (
	EnvSourcePath = EnvPrefix + "SOURCE_PATH"
	EnvBufferSize = EnvPrefix + "BUFFER_SIZE"
	EnvMinLevel   = EnvPrefix + "MIN_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type: SourceFIFO,
		},
		BufferSize: DefaultBufferSize,
		Output: OutputConfig{
			Format:   DefaultFormat,
			MinLevel: irlogger.Debug,
		},
	}
}

// applyEnvironmentOverrides applies IRLOG_* environment variables to the config.
func (c *Config) applyEnvironmentOverrides() error {
	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	if path := k.String("source_path"); path != "" {
		c.Source.Path = path
	}
	if size := k.String("buffer_size"); size != "" {
		c.BufferSize = size
	}
	if level := k.String("min_level"); level != "" {
		severity, err := irlogger.ParseSeverity(level)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinLevel, err)
		}
		c.Output.MinLevel = severity
	}

	return nil
}

// ResolveSourcePath returns the configured source path, falling back to the
// default socket path for FIFO sources.
func (c *Config) ResolveSourcePath() (string, error) {
	if c.Source.Path != "" || c.Source.Type != SourceFIFO {
		return c.Source.Path, nil
	}
	return irpath.DefaultSocketPath()
}
