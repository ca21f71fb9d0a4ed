package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenFIFO creates a FIFO at path with mode 0600, reusing one that already
// exists, and opens it for reading.
//
// The FIFO is opened read/write so that the reader holds a writer end of its
// own: reads block between writer sessions instead of returning EOF.
func OpenFIFO(path string) (*os.File, error) {
	if err := unix.Mkfifo(path, 0o600); err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, fmt.Errorf("creating fifo %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("checking fifo %s: %w", path, err)
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return nil, fmt.Errorf("%s exists and is not a fifo", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0) // #nosec G304 -- caller chooses the path
	if err != nil {
		return nil, fmt.Errorf("opening fifo %s: %w", path, err)
	}
	return f, nil
}

// ReadFIFO opens the FIFO at path and pushes everything written to it into dst
// until ctx is cancelled, which is reported as ctx.Err().
func ReadFIFO(ctx context.Context, path string, dst Pusher, opts ...Option) (int64, error) {
	o := newOptions(opts)
	o.logger.Debug().Str("path", path).Msg("Making FIFO for logging")

	f, err := OpenFIFO(path)
	if err != nil {
		return 0, err
	}

	// closing the file is what interrupts a read blocked in the poller
	stop := context.AfterFunc(ctx, func() {
		_ = f.Close()
	})
	defer func() {
		if stop() {
			if err := f.Close(); err != nil {
				o.logger.Error().Err(err).Str("path", path).Msg("Failed to close FIFO")
			}
		}
	}()

	o.logger.Debug().Str("path", path).Msg("Started reading FIFO")
	n, err := Pump(ctx, f, dst, opts...)
	if err != nil && !errors.Is(err, ctx.Err()) {
		o.logger.Error().Err(err).Str("path", path).Msg("Failed to read FIFO")
	}
	if err == nil {
		// a read/write FIFO never reaches EOF, so this only happens if the
		// file was replaced underneath us
		err = fmt.Errorf("fifo %s closed unexpectedly", path)
	}
	return n, err
}
