// Package main provides the sf CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	debugOutput bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sf",
	Short: "Keyword trees over an academic citation corpus",
	Long: `sf explores a citation corpus by keywords.

Given a query and a set of root papers, it walks two hops of references,
extracts keywords from each hop's abstracts, and selects a diverse,
relevant subset at every level of a keyword tree. Queries can also be
routed to precomputed paper clusters first.

Papers live in git-versionable JSONL with an ephemeral SQLite cache.
All commands output JSON by default for easy integration with agents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logger.Init(logger.Options{Debug: debugOutput})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVar(&debugOutput, "debug", false, "Log debug output to stderr")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start searching for a
// repository: SF_ROOT if set, otherwise the working directory.
func getStartingDirectory() (string, int) {
	if root := os.Getenv("SF_ROOT"); root != "" {
		return root, 0
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds the repository, falling back to the global
// default_repo, and exits on error.
func mustFindRepository() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err == nil {
		return repoRoot
	}
	if repoRoot, err := config.ValidateDefaultRepo(); err == nil {
		return repoRoot
	}
	fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
	os.Exit(ExitConfigError)
	return ""
}
