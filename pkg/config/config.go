package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/irlog/pkg/webhook"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their YAML names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a configuration for errors and fills in derived values.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return describeValidationError(err)
	}

	size, err := ParseBufferSize(cfg.BufferSize)
	if err != nil {
		return fmt.Errorf("buffer_size: %w", err)
	}
	cfg.bufferBytes = size

	if err := validateSource(&cfg.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

// ParseBufferSize parses a human readable size such as "64KiB" or "1MB",
// bounded to (0, MaxBufferSize].
func ParseBufferSize(s string) (int, error) {
	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if size == 0 || size > MaxBufferSize {
		return 0, fmt.Errorf("must be between 1B and %s, got %q", humanize.IBytes(MaxBufferSize), s)
	}
	return int(size), nil
}

func validateSource(src *SourceConfig) error {
	switch src.Type {
	case SourceFile:
		if src.Path == "" {
			return errors.New("path is required for file sources")
		}
	case SourceStdin:
		if src.Path != "" {
			return errors.New("path must be empty for stdin sources")
		}
		if src.Dated {
			return errors.New("dated is not supported for stdin sources")
		}
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	wh.unsetTokenVars = nil
	wh.Token = os.Expand(wh.Token, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			wh.unsetTokenVars = append(wh.unsetTokenVars, name)
		}
		return value
	})

	trigger, err := webhook.ParseTrigger(string(wh.Trigger))
	if err != nil {
		return err
	}
	wh.Trigger = trigger

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// describeValidationError turns validator errors into `field: problem` form.
func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := verrs[0]
	// drop the root struct name
	_, field, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: is required", field)
	case "oneof":
		return fmt.Errorf("%s: invalid value %q (must be one of %s)", field, fmt.Sprint(fe.Value()), strings.Join(strings.Fields(fe.Param()), ", "))
	case "url":
		return fmt.Errorf("%s: invalid url %q", field, fmt.Sprint(fe.Value()))
	case "gte", "lte":
		return fmt.Errorf("%s: %v is out of range", field, fe.Value())
	default:
		return fmt.Errorf("%s: failed %q validation", field, fe.Tag())
	}
}
