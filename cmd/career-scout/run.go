// ABOUTME: The run command: wires config, logging, cache, filter, formatter, and transport
// ABOUTME: Runs the scanner until SIGINT or SIGTERM

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/career-scout/internal/config"
	"github.com/2389/career-scout/internal/dedupe"
	"github.com/2389/career-scout/internal/filter"
	"github.com/2389/career-scout/internal/format"
	"github.com/2389/career-scout/internal/logging"
	"github.com/2389/career-scout/internal/scout"
	"github.com/2389/career-scout/internal/transport"
	"github.com/2389/career-scout/internal/transport/matrix"
)

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scan source rooms and republish vacancies (default)",
		Args:  cobra.NoArgs,
		RunE:  c.runScout,
	}
}

func (c *cli) loadConfig() (*config.Config, string, error) {
	path := config.ResolvePath(c.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, path, nil
}

func (c *cli) runScout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	color.New(color.FgCyan).Fprint(out, banner)

	cfg, configPath, err := c.loadConfig()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := dedupe.OpenStore(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("opening cache store: %w", err)
	}
	cache := dedupe.Open(store, cfg.Cache.TTL, cfg.Cache.Size, dedupe.WithLogger(logger))
	defer cache.Close()

	formatter, err := format.NewForZone(cfg.Scanner.Timezone)
	if err != nil {
		return err
	}

	tr, err := matrix.New(cfg.Matrix, matrix.Options{
		DataDir:  cfg.DataDir,
		PageSize: cfg.Scanner.PageSize,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating matrix transport: %w", err)
	}

	printSummary(out, cfg, configPath, cache.Len())

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	scanner := scout.New(scout.Options{
		Channels:     channels(cfg.Channels),
		DaysToParse:  cfg.Scanner.DaysToParse,
		RequestDelay: cfg.Scanner.RequestDelay,
		Pause:        cfg.Scanner.Pause,
	}, tr, cache, filter.New(cfg.Keywords.Positions, cfg.Keywords.StopWords), formatter, logger)

	logger.Info("starting scanner")
	return scanner.Run(ctx)
}

func printSummary(w io.Writer, cfg *config.Config, configPath string, cached int) {
	green := color.New(color.FgGreen)
	line := func(layout string, a ...any) {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, layout+"\n", a...)
	}

	line("Config:      %s", configPath)
	line("Homeserver:  %s", cfg.Matrix.Homeserver)
	line("Destination: %s", cfg.Matrix.Destination)
	line("Channels:    %d", len(cfg.Channels))
	line("Positions:   %d, stop words: %d", len(cfg.Keywords.Positions), len(cfg.Keywords.StopWords))
	line("Cache:       %s (%s, %d entries)", cfg.Cache.Path, cfg.Cache.Backend, cached)
	line("Window:      %d day(s), pause %s", cfg.Scanner.DaysToParse, cfg.Scanner.Pause)
	if cfg.Matrix.EncryptionEnabled() {
		line("Encryption:  enabled")
	}
	fmt.Fprintln(w)
}

func channels(cfgs []config.ChannelConfig) []transport.Channel {
	out := make([]transport.Channel, 0, len(cfgs))
	for _, ch := range cfgs {
		out = append(out, transport.Channel{ID: ch.ID, Name: ch.Name})
	}
	return out
}
