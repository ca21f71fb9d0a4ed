package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ccollicutt/irlog/pkg/irlogger"
	"github.com/ccollicutt/irlog/pkg/source"
)

// SourceFunc supplies the byte stream, pushing into dst until ctx is cancelled
// or the stream ends.
type SourceFunc func(ctx context.Context, dst source.Pusher) error

// FIFOSource reads the FIFO at path.
func FIFOSource(path string, opts ...source.Option) SourceFunc {
	return func(ctx context.Context, dst source.Pusher) error {
		_, err := source.ReadFIFO(ctx, path, dst, opts...)
		return err
	}
}

// FileSource follows the regular file at path.
func FileSource(path string, opts ...source.Option) SourceFunc {
	return func(ctx context.Context, dst source.Pusher) error {
		_, err := source.Follow(ctx, path, dst, opts...)
		return err
	}
}

// ReaderSource reads r until EOF or until ctx is cancelled. A read blocked on
// a producer that never closes its end is abandoned on cancellation, and r is
// closed if it is an io.Closer; nothing read after that reaches dst.
func ReaderSource(r io.Reader, opts ...source.Option) SourceFunc {
	return func(ctx context.Context, dst source.Pusher) error {
		if closer, ok := r.(io.Closer); ok {
			stop := context.AfterFunc(ctx, func() {
				_ = closer.Close()
			})
			defer stop()
		}

		gate := &gatedPusher{dst: dst}
		done := make(chan error, 1)
		go func() {
			_, err := source.Pump(ctx, r, gate, opts...)
			done <- err
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			gate.close()
			return ctx.Err()
		}
	}
}

// gatedPusher forwards pushes until it is closed.
type gatedPusher struct {
	mu     sync.Mutex
	dst    source.Pusher
	closed bool
}

func (g *gatedPusher) Push(data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.dst.Push(data)
	}
}

func (g *gatedPusher) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

// Config describes a capture.
type Config struct {
	// Owner names the capture in the registry and in logs.
	Owner string

	// Source supplies the stream. Required.
	Source SourceFunc

	// BufferSize is the parser's buffer size. Zero means irlogger.DefaultBufferSize.
	BufferSize int

	// Logger receives the capture's own diagnostics.
	Logger zerolog.Logger
}

// Capture is a running capture.
type Capture struct {
	lease  *Lease
	cancel context.CancelFunc
	logger zerolog.Logger
	done   chan struct{}
	err    error

	mu     sync.Mutex
	parser *irlogger.Parser
}

// Start acquires a lease from reg and starts cfg.Source on its own goroutine,
// with records delivered to sink.
//
// sink is called with the capture's lock held and must not call Stats.
func Start(ctx context.Context, reg *Registry, cfg Config, sink irlogger.Sink) (*Capture, error) {
	if cfg.Source == nil {
		return nil, errors.New("source is required")
	}

	lease, err := reg.Acquire(cfg.Owner)
	if err != nil {
		return nil, err
	}

	var opts []irlogger.Option
	if cfg.BufferSize != 0 {
		opts = append(opts, irlogger.WithBufferSize(cfg.BufferSize))
	}
	parser, err := irlogger.New(sink, opts...)
	if err != nil {
		lease.Release()
		return nil, fmt.Errorf("creating parser: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Capture{
		lease:  lease,
		cancel: cancel,
		logger: cfg.Logger.With().Str("capture", lease.ID().String()).Str("owner", cfg.Owner).Logger(),
		done:   make(chan struct{}),
		parser: parser,
	}

	c.logger.Debug().Msg("Redirecting IRLogger logs to a sink.")
	go c.run(ctx, cfg.Source)

	return c, nil
}

func (c *Capture) run(ctx context.Context, src SourceFunc) {
	defer close(c.done)
	defer c.lease.Release()
	defer c.cancel()

	err := src(ctx, c)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// cancellation is how captures normally end
		err = nil
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("IRLogger capture failed")
	}

	stats := c.Stats()
	c.logger.Debug().
		Int64("bytes", stats.BytesPushed).
		Int("lines", stats.Lines).
		Int("failed", stats.Failed).
		Int("overflows", stats.Overflows).
		Msg("IRLogger capture finished")

	c.err = err
}

// Push feeds data to the parser. Sources call it through the source.Pusher
// they are given.
func (c *Capture) Push(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parser.Push(data)
}

// ID returns the capture's lease ID.
func (c *Capture) ID() string {
	return c.lease.ID().String()
}

// Stats returns the parser's counters so far.
func (c *Capture) Stats() irlogger.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parser.Stats()
}

// Done is closed when the source has returned.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the source returns and reports its error.
// A source ended by cancellation reports nil.
func (c *Capture) Wait() error {
	<-c.done
	return c.err
}

// Stop cancels the source, waits for it and releases the lease.
// It is safe to call more than once.
func (c *Capture) Stop() error {
	c.cancel()
	return c.Wait()
}
