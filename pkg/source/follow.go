package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Follow pushes the contents of the regular file at path into dst and keeps
// pushing whatever is appended to it until ctx is cancelled.
//
// The file does not have to exist yet. If it is removed or renamed, Follow
// waits for a file to reappear at path and reads that from the start.
// Cancellation is reported as ctx.Err().
func Follow(ctx context.Context, path string, dst Pusher, opts ...Option) (int64, error) {
	o := newOptions(opts)
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// watch the directory so creation and rotation are seen too
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return 0, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	var (
		total int64
		f     *os.File
	)
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	for {
		if f == nil {
			f, err = os.Open(path) // #nosec G304 -- caller chooses the path
			switch {
			case err == nil:
				o.logger.Debug().Str("path", path).Msg("Following file")
			case errors.Is(err, fs.ErrNotExist):
				f = nil
				o.logger.Debug().Str("path", path).Msg("Waiting for file to be created")
			default:
				return total, fmt.Errorf("opening %s: %w", path, err)
			}
		}

		if f != nil {
			n, err := Pump(ctx, f, dst, opts...)
			total += n
			if err != nil {
				return total, err
			}
		}

		if err := waitForChange(ctx, watcher, path, &f); err != nil {
			return total, err
		}
	}
}

// waitForChange blocks until path may have new data. It closes and clears *f
// when the file it refers to has gone away.
func waitForChange(ctx context.Context, watcher *fsnotify.Watcher, path string, f **os.File) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if *f != nil {
					_ = (*f).Close()
					*f = nil
				}
			}
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}
}
