package app

import (
	"fmt"
	"sort"

	"libpack/internal/core/config"
	"libpack/internal/core/ports"
	"libpack/internal/engine/classifier"
	"libpack/internal/engine/manifest"

	"github.com/spf13/afero"
)

// ManifestGenerator returns the generator the given mode's pipeline writes
// manifests with.
func (b *Builder) ManifestGenerator(mode config.Mode) *manifest.Generator {
	root := b.paths.OutputRoot(mode)
	if mode == config.ModeDevelopment {
		return manifest.NewGenerator(b.fs, root, b.cfg.Build.ManifestFile, manifest.DevelopmentLocator(root))
	}
	return manifest.NewGenerator(b.fs, root, b.cfg.Build.ManifestFile, manifest.PackageLocator(b.cls.PackageName()))
}

// VerifyManifests compares the manifest modules on disk with what files would
// produce for mode. It returns one line per difference, sorted.
func (b *Builder) VerifyManifests(mode config.Mode, files []classifier.File) []string {
	gen := b.ManifestGenerator(mode)
	var drift []string
	for _, format := range ports.Formats {
		target := gen.Path(format)
		src, err := afero.ReadFile(b.fs, target)
		if err != nil {
			drift = append(drift, fmt.Sprintf("%s: cannot read %s: %v", format, target, err))
			continue
		}
		entries, err := manifest.Parse(src)
		if err != nil {
			drift = append(drift, fmt.Sprintf("%s: %v", format, err))
			continue
		}
		onDisk := manifest.Lookup(entries)
		for _, want := range gen.Entries(format, files) {
			got, ok := onDisk[want.Module]
			switch {
			case !ok:
				drift = append(drift, fmt.Sprintf("%s: missing %s", format, want.Module))
			case got != want.Location:
				drift = append(drift, fmt.Sprintf("%s: %s points at %s, want %s", format, want.Module, got, want.Location))
			}
			delete(onDisk, want.Module)
		}
		for module := range onDisk {
			drift = append(drift, fmt.Sprintf("%s: unexpected %s", format, module))
		}
	}
	sort.Strings(drift)
	return drift
}
