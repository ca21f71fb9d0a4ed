// Package mock simulates the IRLogger so the ingestion path can be exercised
// without camera hardware.
package mock

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/juju/clock"
)

// Defaults used when the corresponding Writer field is zero.
const (
	DefaultInterval = time.Second
	DefaultCount    = 3600
)

// Writer writes IRLogger formatted lines at a fixed pace.
type Writer struct {
	// Clock paces the output. Defaults to clock.WallClock.
	Clock clock.Clock

	// Interval is the delay between debug lines.
	Interval time.Duration

	// Count is the number of debug lines written after the initial warning.
	Count int
}

// Run writes one warning line followed by Count debug lines, Interval apart.
// It returns ctx.Err() if ctx is cancelled first.
func (m *Writer) Run(ctx context.Context, w io.Writer) error {
	clk := m.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	count := m.Count
	if count <= 0 {
		count = DefaultCount
	}

	if _, err := fmt.Fprintf(w, "WARNING [%s] @ 0.01s :Mocking IRLogger output.\n", location()); err != nil {
		return fmt.Errorf("writing mock output: %w", err)
	}

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, "DEBUG [%s] @ %ds :This is some dummy mocked IRLogger output.\n", location(), i); err != nil {
			return fmt.Errorf("writing mock output: %w", err)
		}

		if i == count-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(interval):
		}
	}

	return nil
}

// RunFile is Run writing to path, which is created if needed and appended to.
// Opening a FIFO blocks until a reader has it open.
func (m *Writer) RunFile(ctx context.Context, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600) // #nosec G304 -- caller chooses the path
	if err != nil {
		return fmt.Errorf("opening mock output: %w", err)
	}

	runErr := m.Run(ctx, f)
	if err := f.Close(); err != nil && runErr == nil {
		return fmt.Errorf("closing mock output: %w", err)
	}
	return runErr
}

// location returns "file:line" of its caller, as IRLogger locations do.
func location() string {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return "mock.go:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
