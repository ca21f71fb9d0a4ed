package output

import (
	"context"
	"fmt"
	"io"

	"github.com/juju/clock"

	"github.com/ccollicutt/irlog/pkg/irlogger"
)

// Formatter renders records and ingestion summaries in a specific format.
type Formatter interface {
	// Format renders a single record to the given writer.
	Format(ctx context.Context, rec irlogger.Record, w io.Writer) error

	// FormatReport renders an ingestion summary to the given writer.
	FormatReport(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Timestamps prefixes each record with the time it was formatted.
	Timestamps bool

	// Quiet reduces summaries to a single line (text) or the counters (json).
	Quiet bool

	// Clock supplies timestamps. Defaults to clock.WallClock.
	Clock clock.Clock
}

func (o FormatOptions) clock() clock.Clock {
	if o.Clock == nil {
		return clock.WallClock
	}
	return o.Clock
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "", "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be text or json)", name)
	}
}
