// Package main provides the entry point for the repopulse CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repopulse/repopulse/cmd/repopulse/commands"
	"github.com/repopulse/repopulse/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "repopulse",
		Short: "Repopulse - repository activity analytics",
		Long: `Repopulse ingests git or svn commit history and produces weekly and
rolling-window activity aggregates: commit volume, unique authors, credited
contributors, line churn, and release versions. Expensive diff lookups are
cached on disk so repeated runs over overlapping ranges re-fetch nothing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "repopulse %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
