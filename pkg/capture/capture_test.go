package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/ccollicutt/irlog/pkg/irlogger"
	"github.com/ccollicutt/irlog/pkg/source"
)

type record struct {
	Severity irlogger.Severity
	Message  string
}

type recorder struct {
	mu      sync.Mutex
	records []record
}

func (r *recorder) Log(severity irlogger.Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record{severity, message})
}

func (r *recorder) Records() []record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]record(nil), r.records...)
}

func TestCapture_ReaderSource(t *testing.T) {
	input := "INFO [a.cpp:1] @ 0.1s :one\nbogus\nERROR [b.cpp:2] @ 0.2s :two\n"
	var logs bytes.Buffer
	sink := &recorder{}

	c, err := Start(context.Background(), NewRegistry(), Config{
		Owner:  "test",
		Source: ReaderSource(strings.NewReader(input)),
		Logger: zerolog.New(&logs).Level(zerolog.DebugLevel),
	}, sink)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	want := []record{
		{irlogger.Info, "[a.cpp:1] one"},
		{irlogger.Warn, "Failed to parse IRLogger line due to error: Failed to match regex. Line was bogus"},
		{irlogger.Error, "[b.cpp:2] two"},
	}
	if diff := cmp.Diff(want, sink.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	if stats := c.Stats(); stats.Lines != 3 || stats.Failed != 1 {
		t.Errorf("Stats() = %+v, want 3 lines and 1 failure", stats)
	}
	if !strings.Contains(logs.String(), "Redirecting IRLogger logs to a sink.") {
		t.Errorf("debug log missing redirect message:\n%s", logs.String())
	}
	if !strings.Contains(logs.String(), c.ID()) {
		t.Errorf("logs do not mention capture %s", c.ID())
	}
}

func TestCapture_SingleActive(t *testing.T) {
	reg := NewRegistry()
	block := func(ctx context.Context, _ source.Pusher) error {
		<-ctx.Done()
		return ctx.Err()
	}

	first, err := Start(context.Background(), reg, Config{Owner: "first", Source: block}, &recorder{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := Start(context.Background(), reg, Config{Owner: "second", Source: block}, &recorder{}); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyActive", err)
	}

	if err := first.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := first.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	second, err := Start(context.Background(), reg, Config{Owner: "second", Source: block}, &recorder{})
	if err != nil {
		t.Fatalf("Start() after Stop() error = %v", err)
	}
	_ = second.Stop()
}

func TestCapture_StartFailureReleasesLease(t *testing.T) {
	reg := NewRegistry()

	_, err := Start(context.Background(), reg, Config{
		Source:     ReaderSource(strings.NewReader("")),
		BufferSize: -1,
	}, &recorder{})
	if err == nil {
		t.Fatal("Start() expected error for invalid buffer size")
	}

	if _, ok := reg.Active(); ok {
		t.Error("failed Start() left a lease active")
	}
}

func TestCapture_MissingSource(t *testing.T) {
	if _, err := Start(context.Background(), NewRegistry(), Config{}, &recorder{}); err == nil {
		t.Error("Start() expected error without a source")
	}
}

func TestCapture_SourceError(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry()

	c, err := Start(context.Background(), reg, Config{
		Source: func(context.Context, source.Pusher) error { return boom },
	}, &recorder{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := c.Wait(); !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
	// a finished capture gives its lease back
	if _, ok := reg.Active(); ok {
		t.Error("lease still active after the source returned")
	}
}

func TestCapture_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := func(ctx context.Context, dst source.Pusher) error {
		dst.Push([]byte("DEBUG [x] @ 1s :tick\n"))
		<-ctx.Done()
		return ctx.Err()
	}

	sink := &recorder{}
	c, err := Start(ctx, NewRegistry(), Config{Source: src}, sink)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not stop after parent cancel")
	}
	if err := c.Wait(); err != nil {
		t.Errorf("Wait() error = %v, want nil", err)
	}
	if diff := cmp.Diff([]record{{irlogger.Debug, "[x] tick"}}, sink.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestCapture_ReaderSourceStopsWithOpenProducer(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sink := &recorder{}
	c, err := Start(ctx, NewRegistry(), Config{Source: ReaderSource(r)}, sink)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := w.Write([]byte("INFO [a.cpp:1] @ 0.1s :one\n")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not stop while the producer kept the pipe open")
	}
	if err := c.Wait(); err != nil {
		t.Errorf("Wait() error = %v, want nil", err)
	}
	if diff := cmp.Diff([]record{{irlogger.Info, "[a.cpp:1] one"}}, sink.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	// the reader was closed on cancellation
	if _, err := w.Write([]byte("late\n")); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("write after stop error = %v, want io.ErrClosedPipe", err)
	}
}

func TestCapture_SourceEndReleasesContext(t *testing.T) {
	var sourceCtx context.Context
	src := func(ctx context.Context, dst source.Pusher) error {
		sourceCtx = ctx
		return nil
	}

	c, err := Start(context.Background(), NewRegistry(), Config{Source: src}, &recorder{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if sourceCtx.Err() == nil {
		t.Error("source context still live after the source returned")
	}
}
