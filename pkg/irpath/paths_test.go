package irpath

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
)

func TestDatestring(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{"example", time.Date(2023, 9, 18, 21, 27, 53, 0, time.UTC), "18_9_2023_21-27-53"},
		{"no zero padding", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2_1_2024_3-4-5"},
		{"midnight", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "31_12_2024_0-0-0"},
		{"sub-second ignored", time.Date(2024, 6, 1, 12, 0, 59, 999999999, time.UTC), "1_6_2024_12-0-59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Datestring(tt.time); got != tt.want {
				t.Errorf("Datestring() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDatestring_UsesLocation(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2023, 9, 18, 23, 30, 0, 0, time.UTC).In(zone)

	if got, want := Datestring(ts), "19_9_2023_1-30-0"; got != want {
		t.Errorf("Datestring() = %q, want %q", got, want)
	}
}

func TestLogPath(t *testing.T) {
	ts := time.Date(2023, 9, 18, 21, 27, 53, 0, time.UTC)
	if got, want := LogPath("my-file.log", ts), "my-file.log_18_9_2023_21-27-53.log"; got != want {
		t.Errorf("LogPath() = %q, want %q", got, want)
	}
}

func TestNextSecond(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2023, 9, 18, 21, 27, 53, 1, time.UTC), time.Date(2023, 9, 18, 21, 27, 54, 0, time.UTC)},
		{time.Date(2023, 9, 18, 21, 27, 53, 0, time.UTC), time.Date(2023, 9, 18, 21, 27, 54, 0, time.UTC)},
		{time.Date(2023, 12, 31, 23, 59, 59, 999000000, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := NextSecond(tt.in); !got.Equal(tt.want) {
			t.Errorf("NextSecond(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWaitIfAtEndOfSecond_NoWait(t *testing.T) {
	start := time.Date(2023, 9, 18, 21, 27, 53, 500*int(time.Millisecond), time.UTC)
	clk := testclock.NewClock(start)

	got, err := WaitIfAtEndOfSecond(context.Background(), clk, DefaultEndOfSecondPeriod)
	if err != nil {
		t.Fatalf("WaitIfAtEndOfSecond() error = %v", err)
	}
	if !got.Equal(start) {
		t.Errorf("WaitIfAtEndOfSecond() = %v, want %v", got, start)
	}
}

func TestWaitIfAtEndOfSecond_WaitsForNextSecond(t *testing.T) {
	start := time.Date(2023, 9, 18, 21, 27, 53, 950*int(time.Millisecond), time.UTC)
	clk := testclock.NewClock(start)

	type result struct {
		t   time.Time
		err error
	}
	done := make(chan result, 1)
	go func() {
		got, err := WaitIfAtEndOfSecond(context.Background(), clk, DefaultEndOfSecondPeriod)
		done <- result{got, err}
	}()

	if err := clk.WaitAdvance(50*time.Millisecond, time.Second, 1); err != nil {
		t.Fatalf("WaitAdvance() error = %v", err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("WaitIfAtEndOfSecond() error = %v", r.err)
		}
		want := time.Date(2023, 9, 18, 21, 27, 54, 0, time.UTC)
		if !r.t.Equal(want) {
			t.Errorf("WaitIfAtEndOfSecond() = %v, want %v", r.t, want)
		}
		if got := Datestring(r.t); got != "18_9_2023_21-27-54" {
			t.Errorf("Datestring() = %q, want %q", got, "18_9_2023_21-27-54")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitIfAtEndOfSecond() did not return after the clock advanced")
	}
}

func TestWaitIfAtEndOfSecond_Cancelled(t *testing.T) {
	start := time.Date(2023, 9, 18, 21, 27, 53, 990*int(time.Millisecond), time.UTC)
	clk := testclock.NewClock(start)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := WaitIfAtEndOfSecond(ctx, clk, DefaultEndOfSecondPeriod); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitIfAtEndOfSecond() error = %v, want context.Canceled", err)
	}
}

func TestLogPathNow(t *testing.T) {
	clk := testclock.NewClock(time.Date(2023, 9, 18, 21, 27, 53, 0, time.UTC))

	got, err := LogPathNow(context.Background(), clk, "/tmp/irlogger")
	if err != nil {
		t.Fatalf("LogPathNow() error = %v", err)
	}
	if want := "/tmp/irlogger_18_9_2023_21-27-53.log"; got != want {
		t.Errorf("LogPathNow() = %q, want %q", got, want)
	}
}

func TestDefaultSocketPath_RuntimeDir(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv(EnvRuntimeDir, runtimeDir)

	got, err := DefaultSocketPath()
	if err != nil {
		t.Fatalf("DefaultSocketPath() error = %v", err)
	}

	want := filepath.Join(runtimeDir, "nqm-irimager", "irlogger.fifo")
	if got != want {
		t.Errorf("DefaultSocketPath() = %q, want %q", got, want)
	}
	if info, err := os.Stat(filepath.Dir(got)); err != nil || !info.IsDir() {
		t.Errorf("socket directory not created: %v", err)
	}

	// a second call reuses the directory
	if _, err := DefaultSocketPath(); err != nil {
		t.Errorf("DefaultSocketPath() second call error = %v", err)
	}
}

func TestDefaultSocketPath_MissingRuntimeDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(EnvRuntimeDir, filepath.Join(tmp, "does-not-exist"))
	t.Setenv("TMPDIR", tmp)

	got, err := DefaultSocketPath()
	if err != nil {
		t.Fatalf("DefaultSocketPath() error = %v", err)
	}

	want := filepath.Join(os.TempDir(), "nqm-irimager", "irlogger.fifo")
	if got != want {
		t.Errorf("DefaultSocketPath() = %q, want %q", got, want)
	}
}

func TestDefaultSocketPath_NoRuntimeDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(EnvRuntimeDir, "")
	t.Setenv("TMPDIR", tmp)

	got, err := DefaultSocketPath()
	if err != nil {
		t.Fatalf("DefaultSocketPath() error = %v", err)
	}
	if want := filepath.Join(tmp, "nqm-irimager", "irlogger.fifo"); got != want {
		t.Errorf("DefaultSocketPath() = %q, want %q", got, want)
	}
}
