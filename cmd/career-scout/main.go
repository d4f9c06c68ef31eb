// ABOUTME: Entry point for career-scout
// ABOUTME: Builds the cobra command tree and exits non-zero on fatal errors

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const banner = `
                                                              _
  ___ __ _ _ __ ___  ___ _ __      ___  ___ ___  _   _| |_
 / __/ _' | '__/ _ \/ _ \ '__|____/ __|/ __/ _ \| | | | __|
| (_| (_| | | |  __/  __/ | |_____\__ \ (_| (_) | |_| | |_
 \___\__,_|_|  \___|\___|_|       |___/\___\___/ \__,_|\__|
`

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cli carries flag values shared by every subcommand.
type cli struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "career-scout",
		Short: "Republish matching job vacancies from Matrix rooms",
		Long: `career-scout scans configured Matrix rooms for recent messages that mention
wanted positions, and republishes each new match to a destination room.`,
		RunE:          c.runScout,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		c.runCmd(),
		c.logsCmd(),
		c.clearCacheCmd(),
		c.matchCmd(),
		c.initCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "career-scout %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
