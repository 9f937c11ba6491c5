// Package app sequences a build: discovery, manifests, package descriptor,
// static assets and compiles, in production or development mode.
package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"libpack/internal/core/config"
	domainerrors "libpack/internal/core/errors"
	"libpack/internal/core/ports"
	"libpack/internal/data/history"
	"libpack/internal/data/queue"
	"libpack/internal/engine/classifier"
	"libpack/internal/engine/compiler"
	"libpack/internal/engine/descriptor"
	"libpack/internal/shared/observability"

	"github.com/spf13/afero"
)

// State of the development pipeline.
type State string

const (
	StateIdle     State = "idle"
	StateWatching State = "watching"
)

// DescriptorFile is the name of the package manifest written to the output root.
const DescriptorFile = "package.json"

var _ ports.HistoryStore = (*history.Store)(nil)

type Builder struct {
	cfg     *config.Config
	paths   config.ResolvedPaths
	fs      afero.Fs
	engine  ports.CompileEngine
	history ports.HistoryStore
	cls     *classifier.Classifier
	cwd     string

	state atomic.Value

	mu       sync.RWMutex
	runCtx   context.Context
	runID    string
	queue    *queue.TaskQueue
	compiler *compiler.Compiler
}

type Option func(*Builder)

// WithFs sets the file system used for the output tree, the package manifest
// and static assets. Defaults to the OS file system.
func WithFs(fsys afero.Fs) Option {
	return func(b *Builder) { b.fs = fsys }
}

// WithEngine replaces the esbuild engine.
func WithEngine(engine ports.CompileEngine) Option {
	return func(b *Builder) { b.engine = engine }
}

func WithHistory(store ports.HistoryStore) Option {
	return func(b *Builder) { b.history = store }
}

// WithCwd sets the directory relative paths are resolved against.
func WithCwd(cwd string) Option {
	return func(b *Builder) { b.cwd = cwd }
}

func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "config is required")
	}
	b := &Builder{cfg: cfg, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(b)
	}
	b.state.Store(StateIdle)

	if b.cwd == "" {
		abs, err := filepath.Abs(".")
		if err != nil {
			return nil, err
		}
		b.cwd = abs
	}
	paths, err := config.ResolvePaths(cfg, b.cwd)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "resolve paths")
	}
	b.paths = paths

	name, err := b.packageName()
	if err != nil {
		return nil, err
	}
	b.cls, err = classifier.New(classifier.Options{
		PackageName:  name,
		SourceRoot:   paths.SourceRoot,
		Extension:    cfg.Build.Extension,
		IndexName:    cfg.Build.IndexName,
		ManifestFile: cfg.Build.ManifestFile,
		Rules:        classifier.ConfiguredRules(cfg.Exclude.Patterns),
	})
	if err != nil {
		return nil, err
	}

	if b.engine == nil {
		engine, err := compiler.NewEsbuildEngine(b.fs, compiler.EsbuildOptions{
			WorkingDir: paths.ProjectRoot,
			Target:     cfg.Build.Target,
			JSX:        cfg.Build.JSX,
			Extension:  cfg.Build.Extension,
			External:   cfg.Build.External,
		})
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "configure compiler")
		}
		b.engine = engine
	}
	return b, nil
}

// packageName prefers the configured name and falls back to the package manifest.
func (b *Builder) packageName() (string, error) {
	if b.cfg.Package.Name != "" {
		return b.cfg.Package.Name, nil
	}
	desc, err := descriptor.Load(b.fs, b.paths.Manifest)
	if err != nil {
		return "", domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeNotFound, "package name not configured and package manifest unreadable"),
			domainerrors.CtxPath, b.paths.Manifest,
		)
	}
	name := descriptor.Name(desc)
	if name == "" {
		return "", domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeValidationError, "package manifest has no name"),
			domainerrors.CtxPath, b.paths.Manifest,
		)
	}
	return name, nil
}

func (b *Builder) Classifier() *classifier.Classifier { return b.cls }

func (b *Builder) State() State {
	return b.state.Load().(State)
}

// Discover lists the eligible source files in walk order.
func (b *Builder) Discover() ([]classifier.File, error) {
	defer b.stage("discover")()
	files, err := b.cls.Discover()
	if err != nil {
		return nil, err
	}
	observability.EligibleFiles.Set(float64(len(files)))
	return files, nil
}

// Wait blocks until every compile dispatched in development mode has finished.
func (b *Builder) Wait() {
	b.mu.RLock()
	q := b.queue
	b.mu.RUnlock()
	if q != nil {
		q.Wait()
	}
}

func (b *Builder) stage(name string) func() {
	started := time.Now()
	return func() {
		observability.PipelineDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}
}

func (b *Builder) startRun(mode config.Mode, files int) {
	if b.history == nil {
		return
	}
	run, err := b.history.StartRun(string(mode), files)
	if err != nil {
		slog.Warn("failed to record build run", "error", err)
		return
	}
	b.mu.Lock()
	b.runID = run.ID
	b.mu.Unlock()
}

func (b *Builder) finishRun(runErr error) {
	if b.history == nil {
		return
	}
	b.mu.Lock()
	id := b.runID
	b.runID = ""
	b.mu.Unlock()
	if id == "" {
		return
	}
	if err := b.history.FinishRun(id, runErr); err != nil {
		slog.Warn("failed to finish build run", "error", err)
	}
}

// compile runs one compile and records its outcome.
func (b *Builder) compile(ctx context.Context, c *compiler.Compiler, format, path string) error {
	started := time.Now()
	err := c.Compile(ctx, format, path)
	if b.history != nil {
		b.mu.RLock()
		id := b.runID
		b.mu.RUnlock()
		if id != "" {
			rec := history.CompileRecord{RunID: id, Format: format, Path: path, Duration: time.Since(started)}
			if err != nil {
				rec.Error = err.Error()
			}
			if herr := b.history.RecordCompile(rec); herr != nil {
				slog.Warn("failed to record compile", "error", herr)
			}
		}
	}
	return err
}
