package output

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/ccollicutt/irlog/pkg/irlogger"
)

// JSONFormatter formats records as JSON lines and reports as indented JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// jsonRecord is the wire form of a record.
type jsonRecord struct {
	Time     string            `json:"time,omitempty"`
	Severity irlogger.Severity `json:"severity"`
	Level    int               `json:"level"`
	Message  string            `json:"message"`
}

// Format writes the record as a single line of JSON.
func (f *JSONFormatter) Format(_ context.Context, rec irlogger.Record, w io.Writer) error {
	out := jsonRecord{
		Severity: rec.Severity,
		Level:    int(rec.Severity),
		Message:  rec.Message,
	}
	if f.opts.Timestamps {
		out.Time = f.opts.clock().Now().Format(time.RFC3339)
	}
	return json.NewEncoder(w).Encode(out)
}

// FormatReport renders the report as JSON.
func (f *JSONFormatter) FormatReport(_ context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		// Quiet mode: just summary
		return encoder.Encode(report.Summary)
	}

	return encoder.Encode(report)
}
