package config

import (
	"strings"
)

// Mode selects which pipeline the orchestrator runs.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// ParseMode maps a raw flag value to a Mode. Only "development" selects the
// development pipeline; every other value, including empty, is production.
func ParseMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeDevelopment)) {
		return ModeDevelopment
	}
	return ModeProduction
}

type Config struct {
	Version       int           `toml:"version"`
	Mode          Mode          `toml:"mode"`
	Package       Package       `toml:"package"`
	Paths         Paths         `toml:"paths"`
	Build         Build         `toml:"build"`
	Exclude       Exclude       `toml:"exclude"`
	Assets        Assets        `toml:"assets"`
	Watch         Watch         `toml:"watch"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
}

type Package struct {
	Name     string `toml:"name"`
	Manifest string `toml:"manifest"`
}

type Paths struct {
	ProjectRoot  string `toml:"project_root"`
	SourceRoot   string `toml:"source_root"`
	OutputDir    string `toml:"output_dir"`
	DevOutputDir string `toml:"dev_output_dir"`
}

type Build struct {
	Extension    string   `toml:"extension"`
	IndexName    string   `toml:"index_name"`
	ManifestFile string   `toml:"manifest_file"`
	Target       string   `toml:"target"`
	JSX          bool     `toml:"jsx"`
	External     []string `toml:"external"`
	Concurrency  int      `toml:"concurrency"`
}

type Exclude struct {
	Patterns []string `toml:"patterns"`
}

type Assets struct {
	Files []string `toml:"files"`
}

type Watch struct {
	Workers       int `toml:"workers"`
	QueueCapacity int `toml:"queue_capacity"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

func DefaultConfig() *Config {
	cfg := &Config{Observability: Observability{EnableMetrics: true}}
	applyDefaults(cfg)
	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.Mode == ModeDevelopment
}
