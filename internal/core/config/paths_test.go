package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_DefaultLayout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"name":"lib"}`), 0o644))
	nested := filepath.Join(root, "src", "Foo")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg := DefaultConfig()
	got, err := ResolvePaths(cfg, nested)
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean(root), got.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "src"), got.SourceRoot)
	assert.Equal(t, filepath.Join(root, "dist"), got.OutputDir)
	assert.Equal(t, filepath.Join(root, ".dev"), got.DevOutputDir)
	assert.Equal(t, filepath.Join(root, "package.json"), got.Manifest)
	assert.Equal(t, filepath.Join(root, "data", "history.db"), got.HistoryPath)
	assert.Equal(t, got.DevOutputDir, got.OutputRoot(ModeDevelopment))
	assert.Equal(t, got.OutputDir, got.OutputRoot(ModeProduction))
}

func TestResolvePaths_AbsoluteOverrides(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	cfg := DefaultConfig()
	cfg.Paths.ProjectRoot = root
	cfg.Paths.OutputDir = out

	got, err := ResolvePaths(cfg, "/somewhere/else")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), got.ProjectRoot)
	assert.Equal(t, out, got.OutputDir)
}

func TestResolvePaths_RejectsOutputInsideSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths.ProjectRoot = t.TempDir()
	cfg.Paths.OutputDir = "src/dist"

	_, err := ResolvePaths(cfg, cfg.Paths.ProjectRoot)
	assert.Error(t, err)
}

func TestResolvePaths_EmptyCwd(t *testing.T) {
	_, err := ResolvePaths(DefaultConfig(), " ")
	assert.Error(t, err)
}
