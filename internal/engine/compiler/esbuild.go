package compiler

import (
	"context"
	"fmt"
	"strings"

	"libpack/internal/core/ports"
	"libpack/internal/shared/fsutil"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
)

var _ ports.CompileEngine = (*EsbuildEngine)(nil)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

// EsbuildOptions is the engine's base configuration, shared by every compile.
type EsbuildOptions struct {
	WorkingDir string
	Target     string
	JSX        bool
	Extension  string
	External   []string
}

type EsbuildEngine struct {
	fs     afero.Fs
	opts   EsbuildOptions
	target api.Target
}

func NewEsbuildEngine(fsys afero.Fs, opts EsbuildOptions) (*EsbuildEngine, error) {
	target, ok := targets[strings.ToLower(opts.Target)]
	if !ok {
		return nil, fmt.Errorf("unsupported target %q", opts.Target)
	}
	return &EsbuildEngine{fs: fsys, opts: opts, target: target}, nil
}

// Analyze bundles input in memory as an ES module. Bare package imports and the
// given external names stay unresolved.
func (e *EsbuildEngine) Analyze(ctx context.Context, input string, opts ports.AnalyzeOptions) (*ports.CompiledUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	build := api.BuildOptions{
		EntryPoints:   []string{input},
		AbsWorkingDir: e.opts.WorkingDir,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Format:        api.FormatESModule,
		Platform:      api.PlatformNeutral,
		Target:        e.target,
		Packages:      api.PackagesExternal,
		External:      mergeExternal(e.opts.External, opts.External),
		LogLevel:      api.LogLevelSilent,
	}
	if opts.Sibling != nil {
		build.Plugins = []api.Plugin{siblingPlugin(opts.Sibling)}
	}
	if e.opts.JSX {
		ext := e.opts.Extension
		if ext == "" {
			ext = ".js"
		}
		build.Loader = map[string]api.Loader{ext: api.LoaderJSX}
		build.JSX = api.JSXAutomatic
	}

	result := api.Build(build)
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	if len(result.OutputFiles) == 0 {
		return nil, fmt.Errorf("esbuild produced no output for %s", input)
	}

	return &ports.CompiledUnit{
		Input:      input,
		WorkingDir: e.opts.WorkingDir,
		Code:       result.OutputFiles[0].Contents,
		Metafile:   []byte(result.Metafile),
	}, nil
}

// Emit writes unit in the requested format. ES modules are written as analyzed;
// CommonJS is converted with named exports on module.exports.
func (e *EsbuildEngine) Emit(ctx context.Context, unit *ports.CompiledUnit, opts ports.EmitOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.ExportStyle != "" && opts.ExportStyle != ports.ExportStyleNamed {
		return fmt.Errorf("unsupported export style %q", opts.ExportStyle)
	}

	var code []byte
	switch opts.Format {
	case ports.FormatESM:
		code = unit.Code
	case ports.FormatCJS:
		result := api.Transform(string(unit.Code), api.TransformOptions{
			Format:     api.FormatCommonJS,
			Loader:     api.LoaderJS,
			Target:     e.target,
			Sourcefile: unit.Input,
			LogLevel:   api.LogLevelSilent,
		})
		if len(result.Errors) > 0 {
			return messagesError(result.Errors)
		}
		code = result.Code
	default:
		return fmt.Errorf("unsupported format %q", opts.Format)
	}

	return fsutil.WriteFile(e.fs, opts.OutputPath, code)
}

// relativeImport matches "./x", "../x", "." and absolute paths; bare
// specifiers are already external through PackagesExternal.
const relativeImport = `^(\.\.?(/|$)|/)`

type siblingLookup struct{}

// siblingPlugin keeps file imports that land on another library module external,
// rewritten to that module's public name.
func siblingPlugin(sibling func(string) (string, bool)) api.Plugin {
	return api.Plugin{
		Name: "libpack-siblings",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: relativeImport}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind == api.ResolveEntryPoint {
					return api.OnResolveResult{}, nil
				}
				if _, nested := args.PluginData.(siblingLookup); nested {
					return api.OnResolveResult{}, nil
				}
				res := build.Resolve(args.Path, api.ResolveOptions{
					Importer:   args.Importer,
					Namespace:  args.Namespace,
					ResolveDir: args.ResolveDir,
					Kind:       args.Kind,
					PluginData: siblingLookup{},
					With:       args.With,
				})
				// Unresolvable imports fall through so esbuild reports them itself.
				if len(res.Errors) > 0 || res.External || res.Path == "" {
					return api.OnResolveResult{}, nil
				}
				if module, ok := sibling(res.Path); ok {
					return api.OnResolveResult{Path: module, External: true}, nil
				}
				return api.OnResolveResult{}, nil
			})
		},
	}
}

func mergeExternal(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, name := range list {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func messagesError(msgs []api.Message) error {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	return fmt.Errorf("%s", strings.TrimSpace(strings.Join(formatted, "")))
}
