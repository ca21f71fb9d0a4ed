// Package irlogger turns the raw byte stream written by the IR camera SDK's
// IRLogger into structured log records.
//
// A Parser accepts arbitrary chunks of the stream through Push, reassembles
// newline-terminated lines in a fixed-size ring buffer, and hands one record per
// line to a Sink. Lines that do not parse, and data dropped because the stream
// outpaced the buffer, are reported to the same Sink as Warn diagnostics.
package irlogger

import (
	"errors"
	"fmt"

	"github.com/ccollicutt/irlog/pkg/ringbuffer"
)

// DefaultBufferSize is the ring buffer size used unless WithBufferSize is given.
const DefaultBufferSize = 1 << 20 // 1 MiB

const (
	overflowPrefix     = "IRLoggerParser ring buffer overflow, dumped contents are: "
	parseFailurePrefix = "Failed to parse IRLogger line due to error: "
)

// Sink receives records as they are produced.
//
// Log is called synchronously from Push, once per line and once per overflow,
// in stream order. It must not block indefinitely and must not call Push on the
// Parser that invoked it.
type Sink interface {
	Log(severity Severity, message string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(severity Severity, message string)

// Log calls f(severity, message).
func (f SinkFunc) Log(severity Severity, message string) {
	f(severity, message)
}

// Stats counts what a Parser has seen.
type Stats struct {
	// BytesPushed is the total number of bytes given to Push.
	BytesPushed int64

	// Lines is the number of newline-terminated lines extracted.
	Lines int

	// Parsed is the number of lines that produced a record.
	Parsed int

	// Failed is the number of lines reported as parse failures.
	Failed int

	// Overflows is the number of times the buffer was full and flushed.
	Overflows int

	// BytesDropped is the number of buffered bytes flushed by overflows.
	BytesDropped int64
}

// Parser parses a stream of IRLogger output.
//
// Parser is not safe for concurrent use; callers with several producers must
// serialise their calls to Push.
type Parser struct {
	sink   Sink
	buffer *ringbuffer.Buffer
	stats  Stats

	// scanned is the number of leading buffered bytes known to hold no newline.
	scanned int
}

// Option configures a Parser.
type Option func(*parserOptions)

type parserOptions struct {
	bufferSize int
}

// WithBufferSize sets the size of the ring buffer in bytes.
// This is also the longest line the Parser can reassemble.
func WithBufferSize(n int) Option {
	return func(o *parserOptions) {
		o.bufferSize = n
	}
}

// New creates a Parser that delivers records to sink.
func New(sink Sink, opts ...Option) (*Parser, error) {
	if sink == nil {
		return nil, errors.New("sink is required")
	}

	o := parserOptions{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}

	buffer, err := ringbuffer.New(o.bufferSize)
	if err != nil {
		return nil, fmt.Errorf("creating buffer: %w", err)
	}

	return &Parser{
		sink:   sink,
		buffer: buffer,
	}, nil
}

// Push feeds data into the parser, calling the sink for every complete line.
//
// Push accepts any amount of data. When data does not fit, as much as fits is
// inserted and drained first. If the buffer is completely full of an
// unterminated line, its contents are reported in a single Warn record and
// dropped before parsing continues.
func (p *Parser) Push(data []byte) {
	p.stats.BytesPushed += int64(len(data))

	for {
		if len(data) <= p.buffer.Free() {
			p.insert(data)
			p.drain()
			return
		}

		if p.buffer.Free() == 0 {
			p.overflow()
			continue
		}

		n := p.buffer.Free()
		p.insert(data[:n])
		p.drain()
		data = data[n:]
	}
}

// Write implements io.Writer so a Parser can be the destination of io.Copy.
// It never returns an error.
func (p *Parser) Write(data []byte) (int, error) {
	p.Push(data)
	return len(data), nil
}

// Buffered returns the number of bytes held while waiting for a line terminator.
func (p *Parser) Buffered() int {
	return p.buffer.Size()
}

// BufferSize returns the capacity of the ring buffer.
func (p *Parser) BufferSize() int {
	return p.buffer.Cap()
}

// Stats returns a snapshot of the parser's counters.
func (p *Parser) Stats() Stats {
	return p.stats
}

// insert only fails if the caller passed more than the free space.
func (p *Parser) insert(data []byte) {
	if err := p.buffer.Insert(data); err != nil {
		p.sink.Log(Warn, fmt.Sprintf("IRLoggerParser dropped %d bytes: %v", len(data), err))
	}
}

func (p *Parser) overflow() {
	contents := p.buffer.Peek()
	p.sink.Log(Warn, overflowPrefix+string(contents))

	// discarding exactly Size() bytes cannot fail
	_ = p.buffer.Discard(len(contents))
	p.scanned = 0

	p.stats.Overflows++
	p.stats.BytesDropped += int64(len(contents))
}

// drain emits a record for every complete line in the buffer.
func (p *Parser) drain() {
	for {
		index := p.buffer.IndexByteFrom('\n', p.scanned)
		if index < 0 {
			p.scanned = p.buffer.Size()
			return
		}

		line := string(p.buffer.PeekN(index))
		// drop the line and its terminator
		if err := p.buffer.Discard(index + 1); err != nil {
			p.sink.Log(Warn, fmt.Sprintf("IRLoggerParser failed to discard line: %v", err))
			return
		}
		p.scanned = 0

		p.stats.Lines++
		p.emit(line)
	}
}

func (p *Parser) emit(line string) {
	record, err := ParseLine(line)
	if err != nil {
		p.stats.Failed++
		p.sink.Log(Warn, parseFailurePrefix+err.Error()+" Line was "+line)
		return
	}

	p.stats.Parsed++
	p.sink.Log(record.Severity, record.Message)
}
