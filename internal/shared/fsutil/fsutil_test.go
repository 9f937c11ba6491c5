package fsutil

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/dist/esm/old.js", []byte("old"), 0o644))

	require.NoError(t, Reset(fsys, "/dist"))

	exists, err := afero.Exists(fsys, "/dist/esm/old.js")
	require.NoError(t, err)
	assert.False(t, exists)

	isDir, err := afero.IsDir(fsys, "/dist")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestWriteFile_CreatesParents(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, WriteFile(fsys, "/dist/cjs/Foo/bar.js", []byte("x")))

	data, err := afero.ReadFile(fsys, "/dist/cjs/Foo/bar.js")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestCopyAssets(t *testing.T) {
	src := afero.NewMemMapFs()
	dst := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/project/LICENSE", []byte("MIT"), 0o644))
	require.NoError(t, afero.WriteFile(src, "/project/docs/intro.md", []byte("# Intro"), 0o644))

	copied, err := CopyAssets(src, "/project", dst, "/dist", []string{"LICENSE", "README.md", "docs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"LICENSE", "docs"}, copied)

	data, err := afero.ReadFile(dst, "/dist/LICENSE")
	require.NoError(t, err)
	assert.Equal(t, "MIT", string(data))

	data, err = afero.ReadFile(dst, "/dist/docs/intro.md")
	require.NoError(t, err)
	assert.Equal(t, "# Intro", string(data))
}
