package main

import (
	"log/slog"
	"os"

	domainerrors "libpack/internal/core/errors"

	"github.com/alecthomas/kong"
)

const VERSION = "0.4.0"

const defaultConfigFile = "libpack.toml"

type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"libpack.toml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`
	EnvFile string `name:"env-file" help:"Load KEY=VALUE pairs from this file before reading the environment" default:".env"`

	Build    BuildCmd    `cmd:"" default:"1" help:"Build the package, or watch the source tree in development mode"`
	Discover DiscoverCmd `cmd:"" help:"List eligible source files with their module names"`
	History  HistoryCmd  `cmd:"" help:"Show recent build runs"`
	Version  VersionCmd  `cmd:"" help:"Print version and exit"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("libpack"),
		kong.Description("Compile a JavaScript library source tree into a dual-format distributable package."),
		kong.UsageOnError(),
	)

	logLevel := slog.LevelInfo
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if err := ctx.Run(&cli); err != nil {
		slog.Error("command failed", "command", ctx.Command(), "code", domainerrors.CodeOf(err), "error", err)
		os.Exit(1)
	}
}
