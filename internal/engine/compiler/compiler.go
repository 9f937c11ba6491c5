// Package compiler turns one library source file into one output file per
// format, keeping every sibling library module external.
package compiler

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	domainerrors "libpack/internal/core/errors"
	"libpack/internal/core/ports"
	"libpack/internal/engine/classifier"
	"libpack/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ ports.ModuleCompiler = (*Compiler)(nil)

type Compiler struct {
	engine   ports.CompileEngine
	cls      *classifier.Classifier
	outRoot  string
	external []string
}

// New binds an engine to one output root. external is the module name set of the
// current discovery pass.
func New(engine ports.CompileEngine, cls *classifier.Classifier, outRoot string, external []string) *Compiler {
	return &Compiler{
		engine:   engine,
		cls:      cls,
		outRoot:  outRoot,
		external: append([]string(nil), external...),
	}
}

// OutputPath is outRoot/format/<relative path with a .js extension>.
func (c *Compiler) OutputPath(format string, f classifier.File) string {
	return filepath.Join(c.outRoot, format, filepath.FromSlash(c.cls.OutputRel(f)))
}

// Compile analyzes path and emits it in format. Errors are not swallowed; the
// caller decides whether they abort a batch.
func (c *Compiler) Compile(ctx context.Context, format, path string) (err error) {
	ctx, span := observability.Tracer.Start(ctx, "compiler.Compile", trace.WithAttributes(
		attribute.String("format", format),
		attribute.String("path", path),
	))
	started := time.Now()
	defer func() {
		observability.CompileDuration.WithLabelValues(format).Observe(time.Since(started).Seconds())
		if err != nil {
			observability.CompileFailuresTotal.WithLabelValues(format).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	f := c.cls.Classify(path)
	if !f.Eligible {
		return c.fail(domainerrors.New(domainerrors.CodeValidationError, "not an eligible source file: "+f.Reason), format, path)
	}
	span.SetAttributes(attribute.String("module", f.ModuleName))

	unit, err := c.engine.Analyze(ctx, path, ports.AnalyzeOptions{
		External: c.external,
		Sibling:  c.siblingOf(f),
	})
	if err != nil {
		return c.fail(domainerrors.Wrap(err, domainerrors.CodeCompileFailed, "analyze"), format, path)
	}
	if err := c.checkInlined(unit, f); err != nil {
		return c.fail(err, format, path)
	}

	target := c.OutputPath(format, f)
	if err := c.engine.Emit(ctx, unit, ports.EmitOptions{
		Format:      format,
		OutputPath:  target,
		ExportStyle: ports.ExportStyleNamed,
	}); err != nil {
		return c.fail(domainerrors.Wrap(err, domainerrors.CodeCompileFailed, "emit"), format, path)
	}

	slog.Debug("compiled module", "module", f.ModuleName, "format", format, "output", target, "duration", time.Since(started))
	return nil
}

func (c *Compiler) fail(err error, format, path string) error {
	err = domainerrors.AddContext(err, domainerrors.CtxFormat, format)
	return domainerrors.AddContext(err, domainerrors.CtxPath, path)
}

// siblingOf resolves paths to the module names of every eligible file except
// the entry itself.
func (c *Compiler) siblingOf(entry classifier.File) func(string) (string, bool) {
	entryPath := filepath.Clean(entry.Path)
	return func(resolved string) (string, bool) {
		if filepath.Clean(resolved) == entryPath {
			return "", false
		}
		f := c.cls.Classify(resolved)
		return f.ModuleName, f.Eligible
	}
}

// checkInlined fails when sibling library sources ended up bundled into the
// unit; every module must map to exactly one output per format.
func (c *Compiler) checkInlined(unit *ports.CompiledUnit, entry classifier.File) error {
	if unit == nil || len(unit.Metafile) == 0 {
		return nil
	}
	meta, err := ParseMetafile(unit.Metafile)
	if err != nil {
		slog.Debug("unreadable metafile", "path", entry.Path, "error", err)
		return nil
	}
	slog.Debug("module imports", "module", entry.ModuleName, "external", meta.ExternalImports())

	entryPath := filepath.Clean(entry.Path)
	var inlined []string
	for _, input := range meta.InputPaths(unit.WorkingDir) {
		if input == entryPath {
			continue
		}
		if sibling := c.cls.Classify(input); sibling.Eligible {
			inlined = append(inlined, sibling.ModuleName)
		}
	}
	if len(inlined) == 0 {
		return nil
	}
	observability.InlinedSiblingsTotal.Add(float64(len(inlined)))
	return domainerrors.AddContext(
		domainerrors.New(domainerrors.CodeCompileFailed, "sibling modules inlined: "+strings.Join(inlined, ", ")),
		domainerrors.CtxModule, entry.ModuleName,
	)
}
