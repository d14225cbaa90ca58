// Package watch reports changes to a model file and the textures it binds.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrClosed is returned when the watcher has been closed.
var ErrClosed = errors.New("watcher already closed")

// Event is one debounced change to a tracked file.
type Event struct {
	Path    string
	Model   bool // the model file itself changed
	Removed bool
}

// Watcher watches the directories holding a model and its textures and
// reports changes to those files only. Directories are watched instead of
// files so that editors replacing a file through rename are still seen.
type Watcher struct {
	model    string
	debounce time.Duration
	log      *zap.Logger

	fs *fsnotify.Watcher

	mu       sync.Mutex
	files    map[string]bool // cleaned absolute paths, true for the model
	dirs     map[string]bool
	isClosed bool
}

// New starts watching modelPath. A zero debounce reports every event batch
// as soon as it arrives.
func New(modelPath string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(modelPath)
	if err != nil {
		return nil, fmt.Errorf("resolving model path: %w", err)
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		model:    abs,
		debounce: debounce,
		log:      log,
		fs:       fsWatch,
		files:    map[string]bool{abs: true},
		dirs:     make(map[string]bool),
	}
	if err := w.addDir(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}
	return w, nil
}

// Track replaces the set of texture files reported besides the model.
// Textures in directories that do not exist are skipped.
func (w *Watcher) Track(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return ErrClosed
	}

	files := map[string]bool{w.model: true}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving texture path: %w", err)
		}
		if abs == w.model {
			continue
		}
		files[abs] = false
		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.log.Debug("texture directory not watched", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.dirs[dir] = true
	}
	w.files = files
	return nil
}

// Tracked returns the number of files reported, model included.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

func (w *Watcher) addDir(dir string) error {
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// Run delivers debounced event batches to handle until ctx is done or the
// watcher is closed. handle runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, handle func([]Event)) error {
	pending := make(map[string]Event)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]Event, 0, len(pending))
		for _, e := range pending {
			batch = append(batch, e)
		}
		sort.Slice(batch, func(i, j int) bool {
			if batch[i].Model != batch[j].Model {
				return batch[i].Model
			}
			return batch[i].Path < batch[j].Path
		})
		clear(pending)
		handle(batch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-w.fs.Events:
			if !ok {
				return ErrClosed
			}
			ev, tracked := w.match(e)
			if !tracked {
				continue
			}
			w.log.Debug("file changed", zap.String("path", ev.Path), zap.String("op", e.Op.String()))
			pending[ev.Path] = ev
			if w.debounce <= 0 {
				flush()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			flush()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrClosed
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) match(e fsnotify.Event) (Event, bool) {
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return Event{}, false
	}
	abs, err := filepath.Abs(e.Name)
	if err != nil {
		return Event{}, false
	}
	w.mu.Lock()
	model, ok := w.files[abs]
	w.mu.Unlock()
	if !ok {
		return Event{}, false
	}
	return Event{
		Path:    abs,
		Model:   model,
		Removed: e.Op&(fsnotify.Remove|fsnotify.Rename) != 0,
	}, true
}

// Close stops watching. Run returns ErrClosed afterwards.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	return w.fs.Close()
}
