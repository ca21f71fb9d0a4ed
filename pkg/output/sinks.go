package output

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ccollicutt/irlog/pkg/irlogger"
)

// WriterSink formats records at or above a minimum severity to a writer.
// After the first write error it stops writing and reports the error from Err.
type WriterSink struct {
	w   io.Writer
	f   Formatter
	min irlogger.Severity
	err error
}

// NewWriterSink returns a sink writing records of at least min to w using f.
func NewWriterSink(w io.Writer, f Formatter, min irlogger.Severity) *WriterSink {
	return &WriterSink{w: w, f: f, min: min}
}

// Log implements irlogger.Sink.
func (s *WriterSink) Log(severity irlogger.Severity, message string) {
	if severity < s.min || s.err != nil {
		return
	}
	s.err = s.f.Format(context.Background(), irlogger.Record{Severity: severity, Message: message}, s.w)
}

// Err returns the first write error, if any.
func (s *WriterSink) Err() error {
	return s.err
}

// ZerologSink forwards records to a zerolog.Logger.
type ZerologSink struct {
	logger zerolog.Logger
	min    irlogger.Severity
}

// NewZerologSink returns a sink logging records of at least min to logger,
// tagged with component=irlogger.
func NewZerologSink(logger zerolog.Logger, min irlogger.Severity) *ZerologSink {
	return &ZerologSink{
		logger: logger.With().Str("component", "irlogger").Logger(),
		min:    min,
	}
}

// Log implements irlogger.Sink.
func (s *ZerologSink) Log(severity irlogger.Severity, message string) {
	if severity < s.min {
		return
	}

	event := s.logger.WithLevel(ZerologLevel(severity))
	if severity >= irlogger.Critical {
		// zerolog has no non-terminating level above error
		event = event.Bool("critical", true)
	}
	event.Msg(message)
}

// ZerologLevel maps a severity to the closest zerolog level.
func ZerologLevel(severity irlogger.Severity) zerolog.Level {
	switch {
	case severity < irlogger.Debug:
		return zerolog.TraceLevel
	case severity < irlogger.Info:
		return zerolog.DebugLevel
	case severity < irlogger.Warn:
		return zerolog.InfoLevel
	case severity < irlogger.Error:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

type multiSink []irlogger.Sink

// MultiSink returns a sink that delivers every record to each of sinks in order.
func MultiSink(sinks ...irlogger.Sink) irlogger.Sink {
	return multiSink(append([]irlogger.Sink(nil), sinks...))
}

func (m multiSink) Log(severity irlogger.Severity, message string) {
	for _, s := range m {
		s.Log(severity, message)
	}
}

// CountingSink counts records by severity. It is safe for concurrent use.
type CountingSink struct {
	mu     sync.Mutex
	counts map[irlogger.Severity]int
}

// NewCountingSink returns an empty CountingSink.
func NewCountingSink() *CountingSink {
	return &CountingSink{counts: make(map[irlogger.Severity]int)}
}

// Log implements irlogger.Sink.
func (c *CountingSink) Log(severity irlogger.Severity, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[severity]++
}

// Counts returns a copy of the counts.
func (c *CountingSink) Counts() map[irlogger.Severity]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[irlogger.Severity]int, len(c.counts))
	for severity, n := range c.counts {
		out[severity] = n
	}
	return out
}

// Total returns the number of records counted.
func (c *CountingSink) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}
