package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}
	if !meta.IsDefined("observability", "enable_metrics") {
		cfg.Observability.EnableMetrics = true
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs every section check; the first failure wins.
func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateMode(cfg); err != nil {
		return err
	}
	if err := validatePaths(cfg); err != nil {
		return err
	}
	if err := validateBuild(cfg); err != nil {
		return err
	}
	if err := validateExclude(cfg); err != nil {
		return err
	}
	if err := validateWatch(cfg); err != nil {
		return err
	}
	return validateObservability(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(string(cfg.Mode)) == "" {
		cfg.Mode = ModeProduction
	}

	if strings.TrimSpace(cfg.Package.Manifest) == "" {
		cfg.Package.Manifest = "package.json"
	}

	if strings.TrimSpace(cfg.Paths.SourceRoot) == "" {
		cfg.Paths.SourceRoot = "src"
	}
	if strings.TrimSpace(cfg.Paths.OutputDir) == "" {
		cfg.Paths.OutputDir = "dist"
	}
	if strings.TrimSpace(cfg.Paths.DevOutputDir) == "" {
		cfg.Paths.DevOutputDir = ".dev"
	}

	if strings.TrimSpace(cfg.Build.Extension) == "" {
		cfg.Build.Extension = ".js"
	}
	if strings.TrimSpace(cfg.Build.IndexName) == "" {
		cfg.Build.IndexName = "index"
	}
	if strings.TrimSpace(cfg.Build.ManifestFile) == "" {
		cfg.Build.ManifestFile = "module-paths.js"
	}
	if strings.TrimSpace(cfg.Build.Target) == "" {
		cfg.Build.Target = "es2019"
	}

	if cfg.Assets.Files == nil {
		cfg.Assets.Files = []string{"LICENSE", "README.md", "yarn.lock"}
	}

	if cfg.Watch.Workers <= 0 {
		cfg.Watch.Workers = 4
	}
	if cfg.Watch.QueueCapacity <= 0 {
		cfg.Watch.QueueCapacity = 256
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/history.db"
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
}

func normalize(cfg *Config) {
	cfg.Mode = ParseMode(string(cfg.Mode))
	cfg.Package.Name = strings.TrimSpace(cfg.Package.Name)
	cfg.Package.Manifest = strings.TrimSpace(cfg.Package.Manifest)

	ext := strings.TrimSpace(cfg.Build.Extension)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	cfg.Build.Extension = strings.ToLower(ext)
	cfg.Build.IndexName = strings.TrimSpace(cfg.Build.IndexName)
	cfg.Build.Target = strings.ToLower(strings.TrimSpace(cfg.Build.Target))

	cfg.Build.External = normalizeList(cfg.Build.External)
	cfg.Exclude.Patterns = normalizeList(cfg.Exclude.Patterns)
	cfg.Assets.Files = normalizeList(cfg.Assets.Files)
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
