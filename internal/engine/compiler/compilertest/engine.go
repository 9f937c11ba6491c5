// Package compilertest provides a recording CompileEngine for tests.
package compilertest

import (
	"context"
	"fmt"
	"sync"

	"libpack/internal/core/ports"
	"libpack/internal/shared/fsutil"

	"github.com/spf13/afero"
)

// Call is one Emit observed by the engine.
type Call struct {
	Input    string
	Format   string
	Output   string
	External []string
}

// Engine writes "// <format> <input>" for every emit and records the call.
type Engine struct {
	FS afero.Fs

	mu       sync.Mutex
	calls    []Call
	failures map[string]error
	external map[string][]string
	metafile map[string][]byte
	// Gate, when set, blocks every Analyze until it is closed.
	Gate chan struct{}
}

func New(fsys afero.Fs) *Engine {
	return &Engine{
		FS:       fsys,
		failures: map[string]error{},
		external: map[string][]string{},
		metafile: map[string][]byte{},
	}
}

// FailOn makes every compile of input fail with err.
func (e *Engine) FailOn(input string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[input] = err
}

// SetMetafile makes Analyze of input report meta, relative to "/".
func (e *Engine) SetMetafile(input string, meta []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metafile[input] = meta
}

func (e *Engine) Analyze(ctx context.Context, input string, opts ports.AnalyzeOptions) (*ports.CompiledUnit, error) {
	if e.Gate != nil {
		select {
		case <-e.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.failures[input]; err != nil {
		return nil, err
	}
	e.external[input] = append([]string(nil), opts.External...)
	return &ports.CompiledUnit{
		Input:      input,
		WorkingDir: "/",
		Code:       []byte(input),
		Metafile:   e.metafile[input],
	}, nil
}

func (e *Engine) Emit(ctx context.Context, unit *ports.CompiledUnit, opts ports.EmitOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fsutil.WriteFile(e.FS, opts.OutputPath, []byte(fmt.Sprintf("// %s %s\n", opts.Format, unit.Input))); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{
		Input:    unit.Input,
		Format:   opts.Format,
		Output:   opts.OutputPath,
		External: e.external[unit.Input],
	})
	return nil
}

// Calls returns a copy of the recorded emits.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Reset forgets every recorded call.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}
