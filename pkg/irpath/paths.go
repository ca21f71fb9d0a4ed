// Package irpath resolves the file system locations the IRLogger writes to.
package irpath

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/juju/clock"
)

const (
	socketDirName  = "nqm-irimager"
	socketFileName = "irlogger.fifo"

	// EnvRuntimeDir is consulted first for the socket directory.
	EnvRuntimeDir = "XDG_RUNTIME_DIR"

	// DefaultEndOfSecondPeriod is how close to a second boundary LogPathNow waits.
	DefaultEndOfSecondPeriod = 100 * time.Millisecond
)

// DefaultSocketPath returns the FIFO path used when none is configured,
// creating its parent directory.
//
// The path lives under $XDG_RUNTIME_DIR/nqm-irimager. If the variable is unset
// or names a directory that does not exist, the system temp directory is used.
func DefaultSocketPath() (string, error) {
	if runtimeDir := os.Getenv(EnvRuntimeDir); runtimeDir != "" {
		dir := filepath.Join(runtimeDir, socketDirName)
		err := os.Mkdir(dir, 0o700)
		switch {
		case err == nil, errors.Is(err, fs.ErrExist):
			return filepath.Join(dir, socketFileName), nil
		case errors.Is(err, fs.ErrNotExist):
			// fall through to the temp directory
		default:
			return "", fmt.Errorf("creating socket directory: %w", err)
		}
	}

	dir := filepath.Join(os.TempDir(), socketDirName)
	if err := os.Mkdir(dir, 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("creating socket directory: %w", err)
	}
	return filepath.Join(dir, socketFileName), nil
}

// Datestring formats t the way the IRLogger suffixes its log files:
// day_month_year_hour-minute-second with no zero padding, in t's location.
//
//	Datestring(time.Date(2023, 9, 18, 21, 27, 53, 0, time.Local)) // "18_9_2023_21-27-53"
//
// Distinct instants can share a datestring across time zone changes.
func Datestring(t time.Time) string {
	b := make([]byte, 0, 20)
	b = strconv.AppendInt(b, int64(t.Day()), 10)
	b = append(b, '_')
	b = strconv.AppendInt(b, int64(t.Month()), 10)
	b = append(b, '_')
	b = strconv.AppendInt(b, int64(t.Year()), 10)
	b = append(b, '_')
	b = strconv.AppendInt(b, int64(t.Hour()), 10)
	b = append(b, '-')
	b = strconv.AppendInt(b, int64(t.Minute()), 10)
	b = append(b, '-')
	b = strconv.AppendInt(b, int64(t.Second()), 10)
	return string(b)
}

// LogPath returns the file the IRLogger actually writes to when it is given prefix.
//
//	LogPath("my-file.log", t) // "my-file.log_18_9_2023_21-27-53.log"
func LogPath(prefix string, t time.Time) string {
	return prefix + "_" + Datestring(t) + ".log"
}

// NextSecond returns the first whole second after t.
func NextSecond(t time.Time) time.Time {
	return t.Truncate(time.Second).Add(time.Second)
}

// WaitIfAtEndOfSecond blocks until the next whole second when fewer than
// period remain in the current one, and returns the clock's time afterwards.
//
// The IRLogger names its file after the second it starts in, so a path
// computed just before a boundary could name the wrong file.
func WaitIfAtEndOfSecond(ctx context.Context, clk clock.Clock, period time.Duration) (time.Time, error) {
	now := clk.Now()
	remaining := NextSecond(now).Sub(now)
	if remaining >= period {
		return now, nil
	}

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case <-clk.After(remaining):
	}
	return clk.Now(), nil
}

// LogPathNow waits out the end of the current second if needed and returns
// LogPath for the resulting time.
func LogPathNow(ctx context.Context, clk clock.Clock, prefix string) (string, error) {
	now, err := WaitIfAtEndOfSecond(ctx, clk, DefaultEndOfSecondPeriod)
	if err != nil {
		return "", err
	}
	return LogPath(prefix, now), nil
}
