// Package output formats parsed IRLogger records and ingestion summaries, and
// provides the sinks that deliver records to writers and loggers.
package output

import (
	"time"

	"github.com/ccollicutt/irlog/pkg/irlogger"
)

// Report summarises one ingestion run.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	BytesRead      int64 `json:"bytes_read"`
	LinesProcessed int   `json:"lines_processed"`
	RecordsParsed  int   `json:"records_parsed"`
	ParseFailures  int   `json:"parse_failures"`
	Overflows      int   `json:"overflows"`
	BytesDropped   int64 `json:"bytes_dropped"`

	// BySeverity counts delivered records, diagnostics included, by severity name.
	BySeverity map[string]int `json:"by_severity,omitempty"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources lists what was read.
	Sources []string `json:"sources"`

	// BufferSize is the parser's buffer size in bytes.
	BufferSize int `json:"buffer_size"`

	// StartedAt is when ingestion started.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long ingestion ran.
	Duration time.Duration `json:"duration"`
}

// NewReport builds a Report from parser stats and, optionally, per-severity counts.
func NewReport(stats irlogger.Stats, counts map[irlogger.Severity]int, meta Metadata) *Report {
	report := &Report{
		Summary: Summary{
			BytesRead:      stats.BytesPushed,
			LinesProcessed: stats.Lines,
			RecordsParsed:  stats.Parsed,
			ParseFailures:  stats.Failed,
			Overflows:      stats.Overflows,
			BytesDropped:   stats.BytesDropped,
		},
		Metadata: meta,
	}

	if len(counts) > 0 {
		report.Summary.BySeverity = make(map[string]int, len(counts))
		for severity, n := range counts {
			report.Summary.BySeverity[severity.String()] = n
		}
	}

	return report
}

// HasIssues returns true if any lines failed to parse or data was dropped.
func (r *Report) HasIssues() bool {
	return r.Summary.ParseFailures > 0 || r.Summary.Overflows > 0
}
