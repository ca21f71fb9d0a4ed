// Package source reads IRLogger output from files, FIFOs and arbitrary
// readers and pushes it, chunk by chunk, into a parser.
//
// All blocking and cancellation lives here. Destinations only ever see
// complete Push calls from a single goroutine.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// DefaultChunkSize is the size of each read.
const DefaultChunkSize = 1024

// Pusher receives chunks of the stream. It must not retain the slice.
// *irlogger.Parser satisfies Pusher.
type Pusher interface {
	Push(data []byte)
}

// Option configures a reader.
type Option func(*options)

type options struct {
	chunkSize int
	logger    zerolog.Logger
}

func newOptions(opts []Option) options {
	o := options{
		chunkSize: DefaultChunkSize,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithChunkSize sets the maximum number of bytes read and pushed at once.
// Non-positive values leave the default in place.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithLogger sets the logger for the reader's own diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Pump reads r until EOF and pushes everything it reads into dst.
//
// It returns the number of bytes pushed. Reaching EOF is not an error.
// EINTR and EAGAIN are retried. If ctx is cancelled Pump returns ctx.Err()
// before the next read; unblocking a read already in progress is up to the
// caller, usually by closing r.
func Pump(ctx context.Context, r io.Reader, dst Pusher, opts ...Option) (int64, error) {
	o := newOptions(opts)
	buf := make([]byte, o.chunkSize)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			dst.Push(buf[:n])
			total += int64(n)
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return total, nil
		case isTransient(err):
			o.logger.Trace().Err(err).Msg("retrying read")
		case ctx.Err() != nil:
			// the reader was most likely closed to interrupt us
			return total, ctx.Err()
		default:
			return total, fmt.Errorf("reading: %w", err)
		}
	}
}

func isTransient(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)
}
