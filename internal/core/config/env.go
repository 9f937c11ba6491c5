package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// EnvMode is the explicit mode override.
	EnvMode = "LIBPACK_MODE"
	// EnvNodeMode is honoured when EnvMode is unset so existing npm scripts keep working.
	EnvNodeMode = "NODE_ENV"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ModeFromEnv resolves the operating mode from the environment.
func ModeFromEnv() Mode {
	if val, ok := os.LookupEnv(EnvMode); ok {
		return ParseMode(val)
	}
	return ParseMode(os.Getenv(EnvNodeMode))
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: LIBPACK_[SECTION]_[KEY] (e.g., LIBPACK_PATHS_OUTPUT_DIR).
func ApplyEnvOverrides(cfg *Config) {
	// Package
	setEnvString(&cfg.Package.Name, "LIBPACK_PACKAGE_NAME")
	setEnvString(&cfg.Package.Manifest, "LIBPACK_PACKAGE_MANIFEST")

	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "LIBPACK_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.SourceRoot, "LIBPACK_PATHS_SOURCE_ROOT")
	setEnvString(&cfg.Paths.OutputDir, "LIBPACK_PATHS_OUTPUT_DIR")
	setEnvString(&cfg.Paths.DevOutputDir, "LIBPACK_PATHS_DEV_OUTPUT_DIR")

	// Build
	setEnvString(&cfg.Build.Target, "LIBPACK_BUILD_TARGET")
	setEnvBool(&cfg.Build.JSX, "LIBPACK_BUILD_JSX")
	setEnvInt(&cfg.Build.Concurrency, "LIBPACK_BUILD_CONCURRENCY")

	// Watch
	setEnvInt(&cfg.Watch.Workers, "LIBPACK_WATCH_WORKERS")
	setEnvInt(&cfg.Watch.QueueCapacity, "LIBPACK_WATCH_QUEUE_CAPACITY")

	// History
	setEnvBool(&cfg.History.Enabled, "LIBPACK_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "LIBPACK_HISTORY_PATH")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "LIBPACK_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "LIBPACK_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "LIBPACK_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "LIBPACK_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "LIBPACK_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}
