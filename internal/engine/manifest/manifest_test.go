package manifest

import (
	"path/filepath"
	"strings"
	"testing"

	"libpack/internal/engine/classifier"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const srcRoot = "/work/lib/src"

func classify(t *testing.T, rels ...string) []classifier.File {
	t.Helper()
	c, err := classifier.New(classifier.Options{PackageName: "lib", SourceRoot: srcRoot})
	require.NoError(t, err)

	files := make([]classifier.File, 0, len(rels))
	for _, rel := range rels {
		f := c.Classify(filepath.Join(srcRoot, rel))
		require.True(t, f.Eligible, rel)
		files = append(files, f)
	}
	return files
}

func TestEntries_ProductionLocations(t *testing.T) {
	files := classify(t, "Foo/bar.js", "Foo/index.js", "index.js")
	g := NewGenerator(afero.NewMemMapFs(), "/dist", "module-paths.js", PackageLocator("lib"))

	assert.Equal(t, []Entry{
		{Module: "lib/Foo/bar", Location: "lib/esm/Foo/bar"},
		{Module: "lib/Foo", Location: "lib/esm/Foo"},
		{Module: "lib", Location: "lib/esm"},
	}, g.Entries("esm", files))
}

func TestEntries_DevelopmentLocations(t *testing.T) {
	files := classify(t, "index.js", "Foo/bar.js")
	g := NewGenerator(afero.NewMemMapFs(), "/work/lib/.dev", "module-paths.js", DevelopmentLocator("/work/lib/.dev"))

	entries := g.Entries("cjs", files)
	require.Len(t, entries, 2)
	assert.Equal(t, filepath.Join("/work/lib/.dev", "cjs"), entries[0].Location)
	assert.Equal(t, filepath.Join("/work/lib/.dev", "cjs", "Foo", "bar"), entries[1].Location)
	for _, e := range entries {
		assert.True(t, filepath.IsAbs(e.Location))
	}
}

func TestRender_Shape(t *testing.T) {
	entries := []Entry{{Module: "lib", Location: "lib/esm"}}

	esm, err := Render("esm", entries)
	require.NoError(t, err)
	assert.Contains(t, string(esm), "export default function modulePaths() {")
	assert.Contains(t, string(esm), `    "lib": "lib/esm",`)

	cjs, err := Render("cjs", entries)
	require.NoError(t, err)
	assert.Contains(t, string(cjs), "module.exports = function modulePaths() {")
	assert.True(t, strings.HasSuffix(string(cjs), "  };\n};\n"))
}

func TestWrite_RoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := classify(t, "Foo/bar.js", "Foo/index.js", "index.js", `we"ird\name.js`)
	g := NewGenerator(fsys, "/dist", "module-paths.js", PackageLocator("lib"))

	for _, format := range []string{"esm", "cjs"} {
		t.Run(format, func(t *testing.T) {
			target, err := g.Write(format, files)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("/dist", format, "module-paths.js"), target)

			src, err := afero.ReadFile(fsys, target)
			require.NoError(t, err)

			entries, err := Parse(src)
			require.NoError(t, err)
			assert.Len(t, entries, len(files))

			lookup := Lookup(entries)
			for _, f := range files {
				assert.NotEmpty(t, lookup[f.ModuleName], f.ModuleName)
			}
			assert.Equal(t, g.Entries(format, files), entries, "entries keep walk order")
		})
	}
}

func TestWrite_Overwrites(t *testing.T) {
	fsys := afero.NewMemMapFs()
	g := NewGenerator(fsys, "/dist", "module-paths.js", PackageLocator("lib"))

	_, err := g.Write("esm", classify(t, "index.js", "a.js", "b.js"))
	require.NoError(t, err)
	target, err := g.Write("esm", classify(t, "index.js"))
	require.NoError(t, err)

	src, err := afero.ReadFile(fsys, target)
	require.NoError(t, err)
	entries, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Module: "lib", Location: "lib/esm"}}, entries)
}

func TestWrite_Empty(t *testing.T) {
	fsys := afero.NewMemMapFs()
	g := NewGenerator(fsys, "/dist", "module-paths.js", PackageLocator("lib"))

	target, err := g.Write("cjs", nil)
	require.NoError(t, err)
	src, err := afero.ReadFile(fsys, target)
	require.NoError(t, err)

	entries, err := Parse(src)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWrite_Failure(t *testing.T) {
	g := NewGenerator(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/dist", "module-paths.js", PackageLocator("lib"))
	_, err := g.Write("esm", classify(t, "index.js"))
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("export default function modulePaths() {\n  return {\n    lib: 1,\n  };\n}\n"))
	assert.Error(t, err)
}
