package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var supportedTargets = map[string]bool{
	"es2015": true,
	"es2016": true,
	"es2017": true,
	"es2018": true,
	"es2019": true,
	"es2020": true,
	"es2021": true,
	"es2022": true,
	"es2023": true,
	"es2024": true,
	"esnext": true,
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateMode(cfg *Config) error {
	switch cfg.Mode {
	case ModeProduction, ModeDevelopment:
		return nil
	default:
		return fmt.Errorf("mode must be one of: production, development, got %q", cfg.Mode)
	}
}

func validatePaths(cfg *Config) error {
	if strings.TrimSpace(cfg.Paths.SourceRoot) == "" {
		return fmt.Errorf("paths.source_root must not be empty")
	}
	for name, dir := range map[string]string{
		"paths.output_dir":     cfg.Paths.OutputDir,
		"paths.dev_output_dir": cfg.Paths.DevOutputDir,
	} {
		clean := filepath.Clean(strings.TrimSpace(dir))
		if clean == "." || clean == "/" || clean == "" {
			return fmt.Errorf("%s must name a dedicated directory, got %q", name, dir)
		}
		if clean == filepath.Clean(cfg.Paths.SourceRoot) {
			return fmt.Errorf("%s must differ from paths.source_root", name)
		}
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if cfg.Build.Extension == "." {
		return fmt.Errorf("build.extension must not be empty")
	}
	if cfg.Build.IndexName == "" || strings.ContainsAny(cfg.Build.IndexName, `/\`) {
		return fmt.Errorf("build.index_name must be a bare file name, got %q", cfg.Build.IndexName)
	}
	if strings.ContainsAny(cfg.Build.ManifestFile, `/\`) {
		return fmt.Errorf("build.manifest_file must be a bare file name, got %q", cfg.Build.ManifestFile)
	}
	if !supportedTargets[cfg.Build.Target] {
		return fmt.Errorf("build.target %q is not supported", cfg.Build.Target)
	}
	if cfg.Build.Concurrency < 0 {
		return fmt.Errorf("build.concurrency must be >= 0, got %d", cfg.Build.Concurrency)
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, pattern := range cfg.Exclude.Patterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("exclude.patterns[%d] %q: %w", i, pattern, err)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Workers < 1 {
		return fmt.Errorf("watch.workers must be >= 1, got %d", cfg.Watch.Workers)
	}
	if cfg.Watch.QueueCapacity < 1 {
		return fmt.Errorf("watch.queue_capacity must be >= 1, got %d", cfg.Watch.QueueCapacity)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 1 and 65535, got %d", cfg.Observability.Port)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}
