// Package watch notices externally-driven changes to the branching-info
// store directory (another process committing a revision while this
// working copy is open) using fsnotify, falling back to polling when the
// filesystem watch cannot be established, e.g. on platforms where
// inotify/kqueue setup fails or instance limits are exhausted.
package watch

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

func dirModTime(dir string) (time.Time, bool) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Event is emitted whenever the watched directory changes.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher notifies Events on C until Close is called or ctx is done.
type Watcher struct {
	C      <-chan Event
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
}

// Watch starts watching dir. If constructing an fsnotify watcher fails
// (e.g. inotify instance limits), it falls back to polling dir's mtime
// every pollInterval.
func Watch(ctx context.Context, dir string, pollInterval time.Duration) (*Watcher, error) {
	ctx, cancel := context.WithCancel(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return watchByPolling(ctx, cancel, dir, pollInterval), nil
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return watchByPolling(ctx, cancel, dir, pollInterval), nil
	}

	out := make(chan Event, 16)
	w := &Watcher{C: out, fsw: fsw, cancel: cancel}
	go func() {
		defer close(out)
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				select {
				case out <- Event{Path: ev.Name, Op: ev.Op}:
				default:
				}
			case <-fsw.Errors:
				// Transient watch errors are not fatal; the poll fallback
				// isn't engaged here since fsnotify itself is still
				// running, it just dropped one notification.
			}
		}
	}()
	return w, nil
}

func watchByPolling(ctx context.Context, cancel context.CancelFunc, dir string, interval time.Duration) *Watcher {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		var lastMod time.Time
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mod, ok := dirModTime(dir)
				if !ok {
					continue
				}
				if mod.After(lastMod) {
					lastMod = mod
					select {
					case out <- Event{Path: dir, Op: fsnotify.Write}:
					default:
					}
				}
			}
		}
	}()
	return &Watcher{C: out, cancel: cancel}
}

// Close stops the watcher and releases its fsnotify handle, if any.
func (w *Watcher) Close() error {
	w.cancel()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}
