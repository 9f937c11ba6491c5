package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"libpack/internal/core/config"
	domainerrors "libpack/internal/core/errors"
	"libpack/internal/core/ports"
	"libpack/internal/engine/classifier"
	"libpack/internal/engine/compiler"
	"libpack/internal/engine/descriptor"
	"libpack/internal/engine/manifest"
	"libpack/internal/shared/fsutil"
	"libpack/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Report summarizes a finished pipeline run.
type Report struct {
	Mode      config.Mode
	OutputDir string
	Files     []classifier.File
	Manifests []string
	Assets    []string
	Duration  time.Duration
}

// RunProduction rebuilds the distributable package from scratch. The first
// compile error aborts the run.
func (b *Builder) RunProduction(ctx context.Context) (report *Report, err error) {
	ctx, span := observability.Tracer.Start(ctx, "app.RunProduction")
	defer span.End()

	started := time.Now()
	outDir := b.paths.OutputRoot(config.ModeProduction)
	report = &Report{Mode: config.ModeProduction, OutputDir: outDir}

	if err := b.reset(outDir); err != nil {
		return nil, err
	}
	files, err := b.Discover()
	if err != nil {
		return nil, err
	}
	report.Files = files
	span.SetAttributes(attribute.Int("files", len(files)))

	b.startRun(config.ModeProduction, len(files))
	defer func() { b.finishRun(err) }()

	gen := b.ManifestGenerator(config.ModeProduction)
	report.Manifests = b.writeManifests(gen, files)

	if err := b.writeDescriptor(outDir); err != nil {
		return nil, err
	}

	assets, err := fsutil.CopyAssets(b.fs, b.paths.ProjectRoot, b.fs, outDir, b.cfg.Assets.Files)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeIOFailed, "copy static assets")
	}
	report.Assets = assets

	c := compiler.New(b.engine, b.cls, outDir, classifier.ModuleNames(files))
	for _, format := range ports.Formats {
		if err := b.compileAll(ctx, c, format, files); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(started)
	slog.Info("build complete", "files", len(files), "output", outDir, "duration", report.Duration)
	return report, nil
}

func (b *Builder) reset(dir string) error {
	defer b.stage("reset")()
	if err := fsutil.Reset(b.fs, dir); err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeIOFailed, "reset output directory"),
			domainerrors.CtxPath, dir,
		)
	}
	return nil
}

// writeManifests writes one manifest module per format. Failures are logged and
// do not stop the pipeline.
func (b *Builder) writeManifests(gen *manifest.Generator, files []classifier.File) []string {
	defer b.stage("manifest")()
	written := make([]string, 0, len(ports.Formats))
	for _, format := range ports.Formats {
		target, err := gen.Write(format, files)
		if err != nil {
			observability.ManifestWriteErrorsTotal.Inc()
			slog.Error("failed to write manifest module", "format", format, "path", gen.Path(format), "error", err)
			continue
		}
		written = append(written, target)
	}
	return written
}

func (b *Builder) writeDescriptor(outDir string) error {
	defer b.stage("descriptor")()
	src, err := descriptor.Load(b.fs, b.paths.Manifest)
	if err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeIOFailed, "read package manifest"),
			domainerrors.CtxPath, b.paths.Manifest,
		)
	}
	out := descriptor.Transform(src, descriptor.Entries{CommonJS: ports.FormatCJS, ESModule: ports.FormatESM})
	target := filepath.Join(outDir, DescriptorFile)
	if err := descriptor.Write(b.fs, target, out); err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeIOFailed, "write package manifest"),
			domainerrors.CtxPath, target,
		)
	}
	return nil
}

// compileAll compiles every file into format concurrently and returns the first
// error; the remaining compiles see a cancelled context.
func (b *Builder) compileAll(ctx context.Context, c *compiler.Compiler, format string, files []classifier.File) error {
	ctx, span := observability.Tracer.Start(ctx, "app.compileAll", trace.WithAttributes(attribute.String("format", format)))
	defer span.End()
	defer b.stage("compile_" + format)()

	g, gctx := errgroup.WithContext(ctx)
	if n := b.cfg.Build.Concurrency; n > 0 {
		g.SetLimit(n)
	}
	for _, f := range files {
		path := f.Path
		g.Go(func() error {
			return b.compile(gctx, c, format, path)
		})
	}
	return g.Wait()
}
