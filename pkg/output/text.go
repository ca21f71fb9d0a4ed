package output

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ccollicutt/irlog/pkg/irlogger"
)

// TextFormatter formats records and reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format writes `LEVEL    message`, optionally prefixed with an RFC 3339 time.
func (f *TextFormatter) Format(_ context.Context, rec irlogger.Record, w io.Writer) error {
	var b strings.Builder
	if f.opts.Timestamps {
		b.WriteString(f.opts.clock().Now().Format(time.RFC3339))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-8s %s\n", strings.ToUpper(rec.Severity.String()), rec.Message)

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatReport renders the report as text.
func (f *TextFormatter) FormatReport(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "irlog: %d lines, %d parsed, %d failed, %d overflows\n",
		s.LinesProcessed, s.RecordsParsed, s.ParseFailures, s.Overflows)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	s := report.Summary

	var b strings.Builder
	fmt.Fprintln(&b, "=== irlog Ingestion Summary ===")
	if len(report.Metadata.Sources) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(report.Metadata.Sources, ", "))
	}
	fmt.Fprintf(&b, "Read: %s in %d lines\n", humanize.IBytes(uint64(s.BytesRead)), s.LinesProcessed)
	fmt.Fprintf(&b, "Parsed: %d\n", s.RecordsParsed)
	fmt.Fprintf(&b, "Parse failures: %d\n", s.ParseFailures)

	if s.Overflows > 0 {
		fmt.Fprintf(&b, "Overflows: %d (%s dropped, buffer %s)\n",
			s.Overflows,
			humanize.IBytes(uint64(s.BytesDropped)),
			humanize.IBytes(uint64(report.Metadata.BufferSize)))
	} else {
		fmt.Fprintln(&b, "Overflows: 0")
	}

	if len(s.BySeverity) > 0 {
		names := make([]string, 0, len(s.BySeverity))
		for name := range s.BySeverity {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return severityRank(names[i]) < severityRank(names[j])
		})

		fmt.Fprintln(&b, "Records by severity:")
		for _, name := range names {
			fmt.Fprintf(&b, "  %-8s %d\n", name, s.BySeverity[name])
		}
	}

	fmt.Fprintln(&b, "---")
	if report.HasIssues() {
		fmt.Fprintln(&b, "Result: stream had issues")
	} else {
		fmt.Fprintln(&b, "Result: clean")
	}
	if report.Metadata.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// severityRank orders severity names, unknown names last.
func severityRank(name string) int {
	severity, err := irlogger.ParseSeverity(name)
	if err != nil {
		return int(irlogger.Critical) + 1
	}
	return int(severity)
}
