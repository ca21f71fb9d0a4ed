package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func startFollow(t *testing.T, path string, c *collector) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Follow(ctx, path, c)
		done <- err
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func expectCancelled(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Follow() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow() did not return after cancel")
	}
}

func TestFollow_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irlogger.log")
	appendFile(t, path, "first\n")

	c := &collector{}
	cancel, done := startFollow(t, path, c)
	waitFor(t, c, "first\n")

	appendFile(t, path, "second\n")
	waitFor(t, c, "first\nsecond\n")

	expectCancelled(t, cancel, done)
}

func TestFollow_WaitsForCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irlogger.log")

	c := &collector{}
	cancel, done := startFollow(t, path, c)

	// give the watcher time to start before the file appears
	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, "hello\n")
	waitFor(t, c, "hello\n")

	expectCancelled(t, cancel, done)
}

func TestFollow_Recreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irlogger.log")
	appendFile(t, path, "old\n")

	c := &collector{}
	cancel, done := startFollow(t, path, c)
	waitFor(t, c, "old\n")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, "new\n")
	waitFor(t, c, "old\nnew\n")

	expectCancelled(t, cancel, done)
}

func TestFollow_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "irlogger.log")
	if _, err := Follow(context.Background(), path, &collector{}); err == nil {
		t.Error("Follow() expected error for a missing directory")
	}
}
