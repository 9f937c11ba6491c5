package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"libpack/internal/core/config"
	domainerrors "libpack/internal/core/errors"
	"libpack/internal/data/history"
)

type BuildCmd struct {
	Mode string `short:"m" help:"development or production; overrides LIBPACK_MODE and NODE_ENV"`
}

func (c *BuildCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Mode = resolveMode(c.Mode, cfg.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer startObservability(ctx, cfg)()

	b, cleanup, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.IsDevelopment() {
		return b.RunDevelopment(ctx)
	}
	report, err := b.RunProduction(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderSummary(report))
	return nil
}

type DiscoverCmd struct {
	Mode   string `short:"m" help:"Mode whose manifests --verify checks"`
	Verify bool   `help:"Compare the manifest modules on disk with the source tree"`
}

func (c *DiscoverCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Mode = resolveMode(c.Mode, cfg.Mode)

	b, cleanup, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	files, err := b.Discover()
	if err != nil {
		return err
	}
	fmt.Println(renderDiscovery(b.Classifier(), files))

	if !c.Verify {
		return nil
	}
	drift := b.VerifyManifests(cfg.Mode, files)
	fmt.Println(renderDrift(drift))
	if len(drift) > 0 {
		return domainerrors.New(domainerrors.CodeConflict, fmt.Sprintf("%d manifest differences", len(drift)))
	}
	return nil
}

type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"10"`
	RunID string `arg:"" name:"run" optional:"" help:"Show the compiles of one run"`
}

func (c *HistoryCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(paths.HistoryPath); err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeNotFound, "no build history"),
			domainerrors.CtxPath, paths.HistoryPath,
		)
	}

	store, err := history.Open(paths.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.RunID != "" {
		compiles, err := store.Compiles(c.RunID)
		if err != nil {
			return err
		}
		fmt.Println(renderCompiles(c.RunID, compiles))
		return nil
	}
	runs, err := store.Runs(c.Limit)
	if err != nil {
		return err
	}
	fmt.Println(renderRuns(runs))
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("libpack v%s\n", VERSION)
	return nil
}
