// Package fsutil holds the output-tree side effects of a build: cleaning,
// creating, writing and copying through an afero file system.
package fsutil

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"go.nhat.io/aferocopy/v2"
)

const copyBufferSize uint = 512 * 1024

// Reset removes dir recursively and recreates it empty.
func Reset(fsys afero.Fs, dir string) error {
	if err := fsys.RemoveAll(dir); err != nil {
		return err
	}
	return fsys.MkdirAll(dir, 0o755)
}

// WriteFile writes data to path, creating parent directories first.
func WriteFile(fsys afero.Fs, path string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, 0o644)
}

// CopyAssets copies each named file or directory from srcRoot to dstRoot.
// Missing assets are logged and skipped; it returns the names actually copied.
func CopyAssets(srcFs afero.Fs, srcRoot string, dstFs afero.Fs, dstRoot string, names []string) ([]string, error) {
	copied := make([]string, 0, len(names))
	for _, name := range names {
		src := filepath.Join(srcRoot, name)
		if _, err := srcFs.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Warn("static asset not found, skipping", "path", src)
				continue
			}
			return copied, err
		}

		err := aferocopy.Copy(src, filepath.Join(dstRoot, name), aferocopy.Options{
			SrcFs:          srcFs,
			DestFs:         dstFs,
			Sync:           false,
			CopyBufferSize: copyBufferSize,
			OnDirExists: func(afero.Fs, string, afero.Fs, string) aferocopy.DirExistsAction {
				return aferocopy.Replace
			},
		})
		if err != nil {
			return copied, err
		}
		copied = append(copied, name)
	}
	return copied, nil
}
