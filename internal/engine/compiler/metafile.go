package compiler

import (
	"encoding/json"
	"path/filepath"
	"sort"
)

// Metafile is the subset of esbuild's metafile JSON the compiler inspects.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"`
}

type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

type MetafileOutput struct {
	Bytes      int              `json:"bytes"`
	Imports    []MetafileImport `json:"imports"`
	Exports    []string         `json:"exports"`
	EntryPoint string           `json:"entryPoint,omitempty"`
}

func ParseMetafile(data []byte) (*Metafile, error) {
	if len(data) == 0 {
		return &Metafile{}, nil
	}
	var m Metafile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// InputPaths returns every bundled input as an absolute path, sorted.
func (m *Metafile) InputPaths(workingDir string) []string {
	paths := make([]string, 0, len(m.Inputs))
	for p := range m.Inputs {
		if !filepath.IsAbs(p) {
			p = filepath.Join(workingDir, filepath.FromSlash(p))
		}
		paths = append(paths, filepath.Clean(p))
	}
	sort.Strings(paths)
	return paths
}

// ExternalImports lists the import paths left unresolved in the output.
func (m *Metafile) ExternalImports() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range m.Outputs {
		for _, imp := range o.Imports {
			if imp.External && !seen[imp.Path] {
				seen[imp.Path] = true
				out = append(out, imp.Path)
			}
		}
	}
	sort.Strings(out)
	return out
}
