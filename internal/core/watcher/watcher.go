// Package watcher reports file system changes below a source root, one event
// per notification, without coalescing.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"libpack/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
)

// Kind of change observed on a path.
type Kind string

const (
	KindAdd    Kind = "add"
	KindChange Kind = "change"
	KindRemove Kind = "remove"
)

type Event struct {
	Kind Kind
	Path string
}

// DirFilter lets the watcher skip whole subtrees.
type DirFilter interface {
	ExcludesDir(dir string) bool
}

type Watcher struct {
	root      string
	filter    DirFilter
	fsWatcher *fsnotify.Watcher
	onEvent   func(Event)

	done      chan struct{}
	closeOnce sync.Once
}

func New(root string, filter DirFilter, onEvent func(Event)) (*Watcher, error) {
	if onEvent == nil {
		return nil, os.ErrInvalid
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:      filepath.Clean(root),
		filter:    filter,
		fsWatcher: fsw,
		onEvent:   onEvent,
		done:      make(chan struct{}),
	}, nil
}

// Watch subscribes to the root and every non-excluded directory below it, then
// starts delivering events. onEvent is called from a single goroutine in
// arrival order; a slow handler holds back later events.
func (w *Watcher) Watch() error {
	if err := w.watchRecursive(w.root); err != nil {
		return err
	}
	go w.run()
	return nil
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) excluded(dir string) bool {
	return w.filter != nil && w.filter.ExcludesDir(dir)
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if w.excluded(event.Name) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			// Files may land before the subscription does.
			w.emitExisting(event.Name)
			return
		}
		w.emit(KindAdd, event.Name)
	case event.Has(fsnotify.Write):
		w.emit(KindChange, event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.emit(KindRemove, event.Name)
	}
}

func (w *Watcher) emit(kind Kind, path string) {
	observability.WatcherEventsTotal.WithLabelValues(string(kind)).Inc()
	w.onEvent(Event{Kind: kind, Path: path})
}

func (w *Watcher) emitExisting(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if path != root && w.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		w.emit(KindAdd, path)
		return nil
	})
}
