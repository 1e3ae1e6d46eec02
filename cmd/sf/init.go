package main

import (
	"fmt"
	"os"

	"github.com/matsen/searchforest/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new searchforest repository",
	Long: `Initialize a new searchforest repository in the current directory.

Creates:
  .searchforest/
  ├── papers.jsonl    # Empty file
  ├── config.yml      # Default config
  └── cache/          # Empty directory (gitignored)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	if config.IsRepository(root) {
		exitWithError(ExitError, "directory already contains a searchforest repository")
	}

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	f, err := os.Create(config.PapersPath(root))
	if err != nil {
		exitWithError(ExitError, "creating papers.jsonl: %v", err)
	}
	f.Close()

	if err := config.Default().Save(root); err != nil {
		exitWithError(ExitError, "creating config.yml: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized searchforest repository in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}
