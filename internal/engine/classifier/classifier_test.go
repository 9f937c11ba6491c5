package classifier

import (
	"os"
	"path/filepath"
	"testing"

	domainerrors "libpack/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoot = "/work/lib/src"

func newTestClassifier(t *testing.T, root string) *Classifier {
	t.Helper()
	c, err := New(Options{
		PackageName:  "lib",
		SourceRoot:   root,
		ManifestFile: "module-paths.js",
	})
	require.NoError(t, err)
	return c
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("export const x = 1;\n"), 0o644))
	}
}

func TestClassify_ModuleNames(t *testing.T) {
	c := newTestClassifier(t, testRoot)

	tests := []struct {
		rel     string
		derived string
		module  string
	}{
		{"index.js", "", "lib"},
		{"Foo/index.js", "Foo", "lib/Foo"},
		{"Foo/bar.js", "Foo/bar", "lib/Foo/bar"},
		{"Foo/bar/index.js", "Foo/bar", "lib/Foo/bar"},
		{"utils/deep/nested/helper.js", "utils/deep/nested/helper", "lib/utils/deep/nested/helper"},
		{"indexes.js", "indexes", "lib/indexes"},
		{"Foo/myindex.js", "Foo/myindex", "lib/Foo/myindex"},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			f := c.Classify(filepath.Join(testRoot, tt.rel))
			require.True(t, f.Eligible, "reason: %s", f.Reason)
			assert.Equal(t, tt.rel, f.Rel)
			assert.Equal(t, tt.derived, f.Derived)
			assert.Equal(t, tt.module, f.ModuleName)
		})
	}
}

func TestClassify_RootIndexIsBarePackageName(t *testing.T) {
	c := newTestClassifier(t, testRoot)
	f := c.Classify(filepath.Join(testRoot, "index.js"))
	assert.Equal(t, "lib", f.ModuleName)
	assert.NotContains(t, f.ModuleName, "/")
}

func TestClassify_Exclusions(t *testing.T) {
	c := newTestClassifier(t, testRoot)

	excluded := []string{
		"Foo/__tests__/bar.test.js",
		"__tests__/helper.js",
		"Foo/bar.test.js",
		"Foo/bar.spec.js",
		"types/index.d.ts",
		"__mocks__/fetch.js",
		"Foo/__mocks__/deep/fetch.js",
		"api/client.integration.js",
		"__integration__/flow.js",
		"legacyCache.js",
		"Foo/legacyCache.js",
		".DS_Store",
		"Foo/.DS_Store",
		"Thumbs.db",
	}
	for _, rel := range excluded {
		t.Run(rel, func(t *testing.T) {
			f := c.Classify(filepath.Join(testRoot, rel))
			assert.False(t, f.Eligible)
			assert.Empty(t, f.ModuleName)
			assert.NotEmpty(t, f.Reason)
		})
	}
}

func TestClassify_ExclusionIgnoresExtension(t *testing.T) {
	c := newTestClassifier(t, testRoot)
	for _, ext := range []string{".js", ".ts", ".json", ".css", ""} {
		f := c.Classify(filepath.Join(testRoot, "Foo", "__tests__", "thing"+ext))
		assert.False(t, f.Eligible, "ext %q", ext)
		assert.Equal(t, "test directory", f.Reason)
	}
}

func TestClassify_Ineligible(t *testing.T) {
	c := newTestClassifier(t, testRoot)

	f := c.Classify(filepath.Join(testRoot, "styles.css"))
	assert.False(t, f.Eligible)
	assert.Equal(t, "not a .js source", f.Reason)

	f = c.Classify("/work/lib/scripts/build.js")
	assert.False(t, f.Eligible)
	assert.Equal(t, "outside source root", f.Reason)

	f = c.Classify("relative/path.js")
	assert.False(t, f.Eligible)
}

func TestClassify_ConfiguredRules(t *testing.T) {
	c, err := New(Options{
		PackageName: "lib",
		SourceRoot:  testRoot,
		Rules:       ConfiguredRules([]string{"**/fixtures/**", " "}),
	})
	require.NoError(t, err)

	assert.False(t, c.Classify(filepath.Join(testRoot, "a/fixtures/x.js")).Eligible)
	assert.False(t, c.Classify(filepath.Join(testRoot, "a/__tests__/x.js")).Eligible)
	assert.True(t, c.Classify(filepath.Join(testRoot, "a/x.js")).Eligible)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{SourceRoot: testRoot})
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))

	_, err = New(Options{PackageName: "lib", SourceRoot: testRoot, Rules: []Rule{{Pattern: "[a-", Reason: "bad"}}})
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
}

func TestExcludesDir(t *testing.T) {
	c := newTestClassifier(t, testRoot)

	assert.True(t, c.ExcludesDir(filepath.Join(testRoot, "__tests__")))
	assert.True(t, c.ExcludesDir(filepath.Join(testRoot, "Foo", "__mocks__")))
	assert.False(t, c.ExcludesDir(filepath.Join(testRoot, "Foo")))
	assert.False(t, c.ExcludesDir(testRoot))
	assert.True(t, c.ExcludesDir("/elsewhere"))
}

func TestOutputRel(t *testing.T) {
	c, err := New(Options{PackageName: "lib", SourceRoot: testRoot, Extension: ".jsx"})
	require.NoError(t, err)

	f := c.Classify(filepath.Join(testRoot, "Foo", "Button.jsx"))
	require.True(t, f.Eligible)
	assert.Equal(t, "Foo/Button.js", c.OutputRel(f))
	assert.Equal(t, "lib/Foo/Button", f.ModuleName)
}

// Scenario: {index.js, Foo/index.js, Foo/bar.js, Foo/__tests__/bar.test.js}.
func TestDiscover_Scenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "index.js", "Foo/index.js", "Foo/bar.js", "Foo/__tests__/bar.test.js")

	c := newTestClassifier(t, root)
	files, err := c.Discover()
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.Rel)
	}
	assert.Equal(t, []string{"Foo/bar.js", "Foo/index.js", "index.js"}, rels)
	assert.ElementsMatch(t, []string{"lib", "lib/Foo", "lib/Foo/bar"}, ModuleNames(files))
}

func TestDiscover_DuplicateModuleNames(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.js", "a/index.js", "b.js")

	_, err := newTestClassifier(t, root).Discover()
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConflict))
	assert.Contains(t, err.Error(), "lib/a <- a/index.js, a.js")
}

func TestDiscover_ManifestCollision(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "index.js", "module-paths.js")

	_, err := newTestClassifier(t, root).Discover()
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConflict))
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := newTestClassifier(t, filepath.Join(t.TempDir(), "missing")).Discover()
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeIOFailed))
}

// Names stay unique across a generated tree once index/file collisions are ruled out.
func TestClassify_Injective(t *testing.T) {
	c := newTestClassifier(t, testRoot)

	dirs := []string{"", "a", "a/b", "a/b/c", "x", "x/index"}
	leaves := []string{"index.js", "one.js", "two.js", "b.js", "c.js"}

	seen := make(map[string]string)
	var files []File
	for _, d := range dirs {
		for _, l := range leaves {
			rel := l
			if d != "" {
				rel = d + "/" + l
			}
			f := c.Classify(filepath.Join(testRoot, rel))
			require.True(t, f.Eligible)
			assert.Equal(t, f, c.Classify(filepath.Join(testRoot, rel)), "classification must be deterministic")
			files = append(files, f)
			if prev, ok := seen[f.ModuleName]; ok {
				// The only way to collide is a file next to a same-named directory index.
				assert.True(t,
					prev+"/index.js" == rel || rel+"/index.js" == prev ||
						trimJS(prev)+"/index.js" == rel || trimJS(rel)+"/index.js" == prev,
					"unexpected collision %s vs %s", prev, rel)
				continue
			}
			seen[f.ModuleName] = rel
		}
	}
	assert.Error(t, CheckUnique(files), "index collisions in the generated tree must be reported")
}

func trimJS(rel string) string {
	return rel[:len(rel)-len(".js")]
}

func FuzzClassify(f *testing.F) {
	for _, seed := range []string{"index.js", "Foo/index.js", "Foo/bar.js", "Foo/__tests__/x.js", "a//b.js", "../x.js"} {
		f.Add(seed)
	}
	c, err := New(Options{PackageName: "lib", SourceRoot: testRoot})
	if err != nil {
		f.Fatal(err)
	}
	f.Fuzz(func(t *testing.T, rel string) {
		got := c.Classify(filepath.Join(testRoot, rel))
		if !got.Eligible {
			if got.ModuleName != "" {
				t.Fatalf("ineligible path %q produced module name %q", rel, got.ModuleName)
			}
			return
		}
		if got.ModuleName != "lib" && got.ModuleName != "lib/"+got.Derived {
			t.Fatalf("module name %q does not match derived %q", got.ModuleName, got.Derived)
		}
		if got != c.Classify(filepath.Join(testRoot, rel)) {
			t.Fatalf("classification of %q is not deterministic", rel)
		}
	})
}
