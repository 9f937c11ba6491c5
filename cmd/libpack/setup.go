package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"libpack/internal/core/app"
	"libpack/internal/core/config"
	"libpack/internal/data/history"
	"libpack/internal/shared/observability"
)

// loadConfig reads the config file, falling back to defaults when the default
// file is absent, then applies the environment.
func loadConfig(cli *CLI) (*config.Config, error) {
	if err := config.LoadDotEnv(cli.EnvFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cli.Config != defaultConfigFile {
			return nil, err
		}
		slog.Debug("no config file, using defaults", "path", cli.Config)
		cfg = config.DefaultConfig()
	}

	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveMode applies the mode precedence: flag, then environment, then the
// config file.
func resolveMode(flag string, fromConfig config.Mode) config.Mode {
	if strings.TrimSpace(flag) != "" {
		return config.ParseMode(flag)
	}
	_, explicit := os.LookupEnv(config.EnvMode)
	_, node := os.LookupEnv(config.EnvNodeMode)
	if explicit || node {
		return config.ModeFromEnv()
	}
	if fromConfig == "" {
		return config.ModeProduction
	}
	return fromConfig
}

// newBuilder wires the builder and, when enabled, its history store. The
// returned func releases both.
func newBuilder(cfg *config.Config) (*app.Builder, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	opts := []app.Option{app.WithCwd(cwd)}
	cleanup := func() {}

	if cfg.History.Enabled {
		paths, err := config.ResolvePaths(cfg, cwd)
		if err != nil {
			return nil, nil, err
		}
		store, err := history.Open(paths.HistoryPath)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("build history enabled", "path", store.Path())
		opts = append(opts, app.WithHistory(store))
		cleanup = func() {
			if err := store.Close(); err != nil {
				slog.Warn("failed to close history store", "error", err)
			}
		}
	}

	b, err := app.New(cfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return b, cleanup, nil
}

// startObservability starts tracing export and, in development mode, the
// metrics endpoint. The returned func flushes spans.
func startObservability(ctx context.Context, cfg *config.Config) func() {
	shutdown := func() {}
	if !cfg.Observability.Enabled {
		return shutdown
	}

	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint != "" {
		stop, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			shutdown = func() {
				if err := stop(context.Background()); err != nil {
					slog.Warn("failed to flush traces", "error", err)
				}
			}
		}
	}

	if cfg.Observability.EnableMetrics && cfg.IsDevelopment() {
		go func() {
			if err := observability.ServeMetrics(ctx, cfg.Observability.Port); err != nil {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
	}
	return shutdown
}
