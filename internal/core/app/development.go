package app

import (
	"context"
	"fmt"
	"log/slog"

	"libpack/internal/core/config"
	domainerrors "libpack/internal/core/errors"
	"libpack/internal/core/ports"
	"libpack/internal/core/watcher"
	"libpack/internal/data/queue"
	"libpack/internal/engine/classifier"
	"libpack/internal/engine/compiler"
)

// RunDevelopment prepares the development output root, compiles every eligible
// file once and recompiles each one that is added or changed until ctx is done.
func (b *Builder) RunDevelopment(ctx context.Context) (err error) {
	devDir := b.paths.OutputRoot(config.ModeDevelopment)
	if err := b.reset(devDir); err != nil {
		return err
	}
	files, err := b.Discover()
	if err != nil {
		return err
	}

	b.startRun(config.ModeDevelopment, len(files))
	defer func() { b.finishRun(err) }()

	b.writeManifests(b.ManifestGenerator(config.ModeDevelopment), files)

	q := queue.NewTaskQueue(b.cfg.Watch.QueueCapacity, b.cfg.Watch.Workers)
	q.OnError(func(task queue.Task, err error) {
		slog.Error("compile failed", "task", task.Key, "error", err)
	})
	q.Start(ctx)

	b.mu.Lock()
	b.runCtx = ctx
	b.queue = q
	b.compiler = compiler.New(b.engine, b.cls, devDir, classifier.ModuleNames(files))
	b.mu.Unlock()

	w, err := watcher.New(b.paths.SourceRoot, b.cls, b.HandleEvent)
	if err != nil {
		_ = q.Close()
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "create watcher")
	}
	if err := w.Watch(); err != nil {
		_ = w.Close()
		_ = q.Close()
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeIOFailed, "watch source root"),
			domainerrors.CtxPath, b.paths.SourceRoot,
		)
	}

	// Subscribed first so no edit made during the initial pass is lost.
	for _, f := range files {
		b.HandleEvent(watcher.Event{Kind: watcher.KindAdd, Path: f.Path})
	}

	b.state.Store(StateWatching)
	slog.Info("watching for changes", "source", b.paths.SourceRoot, "output", devDir, "files", len(files))

	<-ctx.Done()

	b.state.Store(StateIdle)
	_ = w.Close()
	<-w.Done()
	_ = q.Close()
	slog.Info("watch stopped")
	return nil
}

// HandleEvent dispatches one compile per format for an added or changed
// eligible file and returns without waiting for them. Removals are ignored.
func (b *Builder) HandleEvent(e watcher.Event) {
	if e.Kind == watcher.KindRemove {
		slog.Debug("ignoring removal", "path", e.Path)
		return
	}
	f := b.cls.Classify(e.Path)
	if !f.Eligible {
		slog.Debug("ignoring change", "path", e.Path, "reason", f.Reason)
		return
	}

	b.mu.RLock()
	ctx, q, c := b.runCtx, b.queue, b.compiler
	b.mu.RUnlock()
	if q == nil || c == nil {
		slog.Warn("change received outside a development run", "path", e.Path)
		return
	}

	for _, format := range ports.Formats {
		format := format
		err := q.Enqueue(ctx, queue.Task{
			Key: fmt.Sprintf("%s:%s", format, f.Path),
			Run: func(ctx context.Context) error {
				return b.compile(ctx, c, format, f.Path)
			},
		})
		if err != nil {
			slog.Warn("compile not dispatched", "path", f.Path, "format", format, "error", err)
		}
	}
}
