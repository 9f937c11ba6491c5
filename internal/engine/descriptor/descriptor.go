// Package descriptor derives the distributable package.json from the project's own.
package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"libpack/internal/shared/fsutil"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/afero"
)

const (
	KeyScripts     = "scripts"
	KeyMain        = "main"
	KeyModule      = "module"
	KeySideEffects = "sideEffects"
)

// Entries names the format directories the entry points live in.
type Entries struct {
	CommonJS string
	ESModule string
}

func (e Entries) main() string   { return e.CommonJS + "/index.js" }
func (e Entries) module() string { return e.ESModule + "/index.js" }

// Load reads a package manifest keeping its key order.
func Load(fsys afero.Fs, path string) (*orderedmap.OrderedMap, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*orderedmap.OrderedMap, error) {
	m := orderedmap.New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse package manifest: %w", err)
	}
	return m, nil
}

// Transform drops build-only fields and points the entry fields at the compiled
// formats. The input is left untouched. "sideEffects": false is how a package
// declares itself free of side effects.
func Transform(src *orderedmap.OrderedMap, entries Entries) *orderedmap.OrderedMap {
	out := orderedmap.New()
	if src != nil {
		for _, key := range src.Keys() {
			if key == KeyScripts {
				continue
			}
			value, _ := src.Get(key)
			out.Set(key, value)
		}
	}
	out.Set(KeyMain, entries.main())
	out.Set(KeyModule, entries.module())
	out.Set(KeySideEffects, false)
	return out
}

// Marshal renders the descriptor with two-space indentation and a trailing newline.
func Marshal(desc *orderedmap.OrderedMap) ([]byte, error) {
	raw, err := json.Marshal(desc)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func Write(fsys afero.Fs, path string, desc *orderedmap.OrderedMap) error {
	data, err := Marshal(desc)
	if err != nil {
		return err
	}
	return fsutil.WriteFile(fsys, path, data)
}

// Name returns the manifest's "name" field, or "" when absent.
func Name(m *orderedmap.OrderedMap) string {
	if m == nil {
		return ""
	}
	v, ok := m.Get("name")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// DependencyNames lists dependencies and peerDependencies; the compiler keeps
// them external.
func DependencyNames(m *orderedmap.OrderedMap) []string {
	if m == nil {
		return nil
	}
	var names []string
	for _, field := range []string{"dependencies", "peerDependencies"} {
		v, ok := m.Get(field)
		if !ok {
			continue
		}
		names = append(names, objectKeys(v)...)
	}
	return names
}

func objectKeys(v interface{}) []string {
	switch obj := v.(type) {
	case *orderedmap.OrderedMap:
		return obj.Keys()
	case orderedmap.OrderedMap:
		return obj.Keys()
	case map[string]interface{}:
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		return keys
	default:
		return nil
	}
}
