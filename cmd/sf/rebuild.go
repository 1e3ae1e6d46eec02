package main

import (
	"fmt"
	"os"

	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query layer from source data",
	Long: `Rebuild the SQLite query database from papers.jsonl.

Use this after pulling changes from git or if the database becomes
corrupted. Cached trees are discarded.`,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status    string `json:"status"`
	Papers    int    `json:"papers"`
	Citations int    `json:"citations"`
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

func runRebuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.PapersPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}
	citations, err := db.CountCitations()
	if err != nil {
		exitWithError(ExitError, "counting citations: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt query database with %d papers and %d citations\n", count, citations)
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", Papers: count, Citations: citations})
	}
	return nil
}
