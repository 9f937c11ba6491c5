package ports

import (
	"context"

	"libpack/internal/data/history"
)

// Output format names double as the directory names below the output root.
const (
	FormatESM = "esm"
	FormatCJS = "cjs"
)

// Formats lists every output format in build order.
var Formats = []string{FormatESM, FormatCJS}

// ExportStyleNamed writes exports as named bindings rather than one default export.
const ExportStyleNamed = "named"

// AnalyzeOptions are merged into the engine's own base options for one analysis.
type AnalyzeOptions struct {
	External []string
	// Sibling maps a resolved file path to the public module name it is
	// published under. Imports resolving to a sibling stay external under that name.
	Sibling func(resolved string) (module string, ok bool)
}

// CompiledUnit is an analyzed source file held in memory until it is emitted.
type CompiledUnit struct {
	Input      string
	WorkingDir string
	Code       []byte
	Metafile   []byte
}

// EmitOptions selects how and where a unit is written.
type EmitOptions struct {
	Format      string
	OutputPath  string
	ExportStyle string
}

// CompileEngine abstracts the bundler: analyze one input, emit it in one format.
type CompileEngine interface {
	Analyze(ctx context.Context, input string, opts AnalyzeOptions) (*CompiledUnit, error)
	Emit(ctx context.Context, unit *CompiledUnit, opts EmitOptions) error
}

// ModuleCompiler compiles one source path into one output file of one format.
type ModuleCompiler interface {
	Compile(ctx context.Context, format, path string) error
}

// HistoryStore abstracts build-run persistence.
type HistoryStore interface {
	StartRun(mode string, files int) (history.Run, error)
	FinishRun(id string, runErr error) error
	RecordCompile(rec history.CompileRecord) error
}
