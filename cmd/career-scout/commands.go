// ABOUTME: Maintenance commands: logs, clear-cache, and match
// ABOUTME: Each loads the config and acts on one component without connecting to Matrix

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/career-scout/internal/dedupe"
	"github.com/2389/career-scout/internal/filter"
	"github.com/2389/career-scout/internal/logging"
)

func (c *cli) logsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Follow the log file (Ctrl+C to stop)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cfg.Logging.File == "" {
				fmt.Fprintln(out, "Log file not found: logging.file is not set")
				return nil
			}

			if _, err := os.Stat(cfg.Logging.File); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(out, "Log file not found at: %s\n", cfg.Logging.File)
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			fmt.Fprintln(out, "Watching logs in real-time. Press Ctrl+C to stop.")
			if err := logging.Follow(ctx, cfg.Logging.File, out); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nStopped watching logs")
			return nil
		},
	}
}

func (c *cli) clearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete the dedupe cache so every message is considered new",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			store, err := dedupe.OpenStore(cfg.Cache.Backend, cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("opening cache store: %w", err)
			}
			defer store.Close()

			err = store.Clear()
			switch {
			case errors.Is(err, dedupe.ErrNoCache):
				color.New(color.FgYellow).Fprintf(out, "Cache file not found at: %s\n", store.Location())
				return nil
			case err != nil:
				return fmt.Errorf("clearing cache: %w", err)
			}

			color.New(color.FgGreen).Fprintln(out, "Cache cleared successfully")
			return nil
		},
	}
}

func (c *cli) matchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match [text]",
		Short: "Check text against the configured keywords",
		Long: `Check text against the configured keywords.

The text is taken from the arguments, or read from stdin when none are given.

Examples:
  career-scout match "Senior iOS Developer, remote"
  cat post.txt | career-scout match`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}

			f := filter.New(cfg.Keywords.Positions, cfg.Keywords.StopWords)
			printMatch(cmd.OutOrStdout(), f, text)
			return nil
		},
	}
}

func printMatch(w io.Writer, f *filter.Filter, text string) {
	if f.IsRelevant(text) {
		color.New(color.FgGreen).Fprintln(w, "Relevant: yes")
	} else {
		color.New(color.FgRed).Fprintln(w, "Relevant: no")
	}

	keywords := f.ExtractKeywords(text)
	if len(keywords) == 0 {
		fmt.Fprintln(w, "Keywords: (none)")
	} else {
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(keywords, ", "))
	}

	if stops := f.MatchedStopWords(text); len(stops) > 0 {
		fmt.Fprintf(w, "Stop words: %s\n", strings.Join(stops, ", "))
	}
}
