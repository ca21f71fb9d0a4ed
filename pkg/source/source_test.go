package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// collector is a Pusher that records every chunk.
type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) Push(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, string(data))
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func (c *collector) Chunks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks)
}

// waitFor polls until the collector has received want.
func waitFor(t *testing.T, c *collector, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.String() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("collected %q, want %q", c.String(), want)
}

func TestPump(t *testing.T) {
	input := "INFO [a.cpp:1] @ 0.1s :one\nINFO [a.cpp:2] @ 0.2s :two\n"
	c := &collector{}

	n, err := Pump(context.Background(), strings.NewReader(input), c, WithChunkSize(8))
	if err != nil {
		t.Fatalf("Pump() error = %v", err)
	}
	if n != int64(len(input)) {
		t.Errorf("Pump() = %d, want %d", n, len(input))
	}
	if c.String() != input {
		t.Errorf("pushed %q, want %q", c.String(), input)
	}
	if want := (len(input) + 7) / 8; c.Chunks() != want {
		t.Errorf("pushed %d chunks, want %d", c.Chunks(), want)
	}
}

func TestPump_DefaultChunkSize(t *testing.T) {
	input := strings.Repeat("x", 3*DefaultChunkSize)
	c := &collector{}

	if _, err := Pump(context.Background(), strings.NewReader(input), c, WithChunkSize(0)); err != nil {
		t.Fatalf("Pump() error = %v", err)
	}
	if c.Chunks() != 3 {
		t.Errorf("pushed %d chunks, want 3", c.Chunks())
	}
}

func TestPump_Empty(t *testing.T) {
	c := &collector{}
	n, err := Pump(context.Background(), strings.NewReader(""), c)
	if err != nil || n != 0 {
		t.Errorf("Pump() = %d, %v, want 0, nil", n, err)
	}
	if c.Chunks() != 0 {
		t.Errorf("pushed %d chunks, want 0", c.Chunks())
	}
}

// scriptedReader returns the next step on each Read.
type scriptedReader struct {
	steps []step
}

type step struct {
	data string
	err  error
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.steps) == 0 {
		return 0, io.EOF
	}
	s := r.steps[0]
	r.steps = r.steps[1:]
	return copy(p, s.data), s.err
}

func TestPump_RetriesTransientErrors(t *testing.T) {
	r := &scriptedReader{steps: []step{
		{data: "ab"},
		{err: unix.EINTR},
		{data: "cd", err: unix.EAGAIN},
		{data: "ef"},
	}}
	c := &collector{}

	n, err := Pump(context.Background(), r, c)
	if err != nil {
		t.Fatalf("Pump() error = %v", err)
	}
	if n != 6 || c.String() != "abcdef" {
		t.Errorf("Pump() = %d, pushed %q, want 6, %q", n, c.String(), "abcdef")
	}
}

func TestPump_ReadError(t *testing.T) {
	boom := errors.New("boom")
	r := &scriptedReader{steps: []step{{data: "ab"}, {data: "c", err: boom}}}
	c := &collector{}

	n, err := Pump(context.Background(), r, c)
	if !errors.Is(err, boom) {
		t.Fatalf("Pump() error = %v, want %v", err, boom)
	}
	// data returned alongside the error is still delivered
	if n != 3 || c.String() != "abc" {
		t.Errorf("Pump() = %d, pushed %q, want 3, %q", n, c.String(), "abc")
	}
}

func TestPump_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}
	if _, err := Pump(ctx, strings.NewReader("data"), c); !errors.Is(err, context.Canceled) {
		t.Errorf("Pump() error = %v, want context.Canceled", err)
	}
	if c.Chunks() != 0 {
		t.Errorf("pushed %d chunks after cancel, want 0", c.Chunks())
	}
}
