// Package manifest generates the module that maps public module names to the
// location of their compiled output, one per output format.
package manifest

import (
	"path"
	"path/filepath"

	"libpack/internal/engine/classifier"
	"libpack/internal/shared/fsutil"

	"github.com/spf13/afero"
)

type Entry struct {
	Module   string
	Location string
}

// Locator turns a derived module path into the location a resolver should load.
type Locator func(format, derived string) string

// DevelopmentLocator points at absolute paths below the development output root.
func DevelopmentLocator(devRoot string) Locator {
	return func(format, derived string) string {
		if derived == "" {
			return filepath.Join(devRoot, format)
		}
		return filepath.Join(devRoot, format, filepath.FromSlash(derived))
	}
}

// PackageLocator points at package-relative logical paths, which is what an
// installed package is resolved through.
func PackageLocator(packageName string) Locator {
	return func(format, derived string) string {
		return path.Join(packageName, format, derived)
	}
}

type Generator struct {
	fs       afero.Fs
	outRoot  string
	fileName string
	locate   Locator
}

func NewGenerator(fsys afero.Fs, outRoot, fileName string, locate Locator) *Generator {
	return &Generator{fs: fsys, outRoot: outRoot, fileName: fileName, locate: locate}
}

// Path is where the manifest module for format is written.
func (g *Generator) Path(format string) string {
	return filepath.Join(g.outRoot, format, g.fileName)
}

// Entries maps every file to its location, in the order the files were given.
func (g *Generator) Entries(format string, files []classifier.File) []Entry {
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, Entry{
			Module:   f.ModuleName,
			Location: g.locate(format, f.Derived),
		})
	}
	return entries
}

// Write renders and writes the manifest module for format, replacing any
// previous one.
func (g *Generator) Write(format string, files []classifier.File) (string, error) {
	entries := g.Entries(format, files)
	src, err := Render(format, entries)
	if err != nil {
		return "", err
	}
	target := g.Path(format)
	if err := fsutil.WriteFile(g.fs, target, src); err != nil {
		return "", err
	}
	return target, nil
}
