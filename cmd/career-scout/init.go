// ABOUTME: Interactive config generator for career-scout
// ABOUTME: Prompts for Matrix credentials, rooms, and keywords, then writes a YAML config

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/career-scout/internal/config"
)

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively create a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), config.ResolvePath(c.configPath))
		},
	}
}

func runInit(in io.Reader, out io.Writer, configPath string) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(out, banner)
	fmt.Fprintln(out, "    Interactive Setup")
	fmt.Fprintln(out, "    -----------------")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		green.Fprint(out, "    ▶ ")
		fmt.Fprint(out, prompt)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return def
		}
		return answer
	}

	if _, err := os.Stat(configPath); err == nil {
		yellow.Fprintf(out, "    Config already exists at %s\n", configPath)
		fmt.Fprint(out, "    Overwrite? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "    Aborted.")
			return nil
		}
		fmt.Fprintln(out)
	}

	homeserver := ask("Matrix homeserver URL [https://matrix.org]: ", "https://matrix.org")
	username := ask("Matrix username: ", "")
	password := ask("Matrix password: ", "")
	recoveryKey := ask("Matrix recovery key (optional, for E2EE): ", "")
	destination := ask("Destination room (ID or alias): ", "")
	rooms := splitList(ask("Source rooms (comma separated): ", ""))
	positions := splitList(ask("Position keywords (comma separated): ", ""))
	stopWords := splitList(ask("Stop words (comma separated, optional): ", ""))
	timezone := ask("Time zone for dates [UTC]: ", config.DefaultTimezone)

	var b strings.Builder
	b.WriteString("# career-scout configuration\n# Generated by career-scout init\n\n")
	b.WriteString("matrix:\n")
	fmt.Fprintf(&b, "  homeserver: %q\n", homeserver)
	fmt.Fprintf(&b, "  username: %q\n", username)
	fmt.Fprintf(&b, "  password: %q\n", password)
	if recoveryKey != "" {
		fmt.Fprintf(&b, "  recovery_key: %q\n", recoveryKey)
	}
	fmt.Fprintf(&b, "  destination: %q\n", destination)

	b.WriteString("\nchannels:\n")
	for _, room := range rooms {
		fmt.Fprintf(&b, "  - id: %q\n", room)
	}

	b.WriteString("\nkeywords:\n  positions:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "    - %q\n", p)
	}
	b.WriteString("  stop_words:\n")
	for _, s := range stopWords {
		fmt.Fprintf(&b, "    - %q\n", s)
	}

	fmt.Fprintf(&b, `
cache:
  backend: %q
  path: %q
  ttl: "24h"

scanner:
  days_to_parse: %d
  request_delay: %q
  pause: %q
  timezone: %q

logging:
  level: %q
  file: "logs/career-scout.log"
`, config.DefaultCacheBackend, config.DefaultCachePath, config.DefaultDaysToParse,
		config.DefaultRequestDelay.String(), config.DefaultPause.String(), timezone, config.DefaultLogLevel)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(out)
	green.Fprintf(out, "    ✓ Config written to %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    Next steps:")
	fmt.Fprintln(out, "    1. Check it: career-scout match \"<a sample vacancy>\"")
	fmt.Fprintln(out, "    2. Run: career-scout")
	fmt.Fprintln(out)

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
