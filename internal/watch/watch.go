// Package watch triggers a callback when a single file changes on disk.
//
// The watcher observes the file's parent directory rather than the file
// itself, so editors that save by renaming a temp file over the original, and
// deletions followed by re-creation, are still seen. Bursts of events are
// collapsed into one callback after a quiet period.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Krakenied/MiniMessenger/internal/log"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher closed")

// Watcher calls a function after the watched file settles.
type Watcher struct {
	file     string
	debounce time.Duration
	onChange func()

	fsw       *fsnotify.Watcher
	closeOnce sync.Once
}

// New watches file and calls onChange after every burst of changes. The
// file's directory must exist.
func New(file string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: onChange cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		file:     abs,
		debounce: debounce,
		onChange: onChange,
		fsw:      fsw,
	}, nil
}

// File returns the absolute path being watched.
func (w *Watcher) File() string { return w.file }

// Run delivers callbacks until ctx is done or the watcher is closed. It
// returns nil when ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrClosed
			}
			if !w.relevant(ev) {
				continue
			}
			log.Debug("watched file changed", "file", w.file, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrClosed
			}
			log.Warn("file watcher error", "file", w.file, "error", err)
		case <-timer.C:
			w.onChange()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.file {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}
