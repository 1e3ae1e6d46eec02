package main

import (
	"fmt"
	"os"

	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/storage"
	"github.com/spf13/cobra"
)

var importDryRun bool

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without writing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <papers.jsonl>",
	Short: "Import papers with their references",
	Long: `Import papers from a JSONL file, one paper per line:

  {"id": "...", "title": "...", "abstract": "...", "references": ["..."]}

Papers with a known id replace the stored record. The query database is
rebuilt afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult is the response for the import command.
type ImportResult struct {
	storage.MergeResult
	Total  int  `json:"total"`
	DryRun bool `json:"dry_run,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	if _, err := os.Stat(args[0]); err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}
	incoming, err := storage.ReadAll(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}

	papersPath := config.PapersPath(repoRoot)
	existing, err := storage.ReadAll(papersPath)
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %v", err)
	}

	merged, res := storage.Merge(existing, incoming)
	result := ImportResult{MergeResult: res, Total: len(merged), DryRun: importDryRun}

	if !importDryRun {
		if err := storage.WriteAll(papersPath, merged); err != nil {
			exitWithError(ExitError, "writing papers: %v", err)
		}
		db := mustOpenDatabase(repoRoot)
		defer db.Close()
		if _, err := db.RebuildFromJSONL(papersPath); err != nil {
			exitWithError(ExitDataError, "rebuilding database: %v", err)
		}
	}

	if humanOutput {
		verb := "Imported"
		if importDryRun {
			verb = "Would import"
		}
		fmt.Printf("%s %d new, %d updated, %d skipped (%d papers total)\n", verb, res.Added, res.Updated, res.Skipped, len(merged))
	} else {
		outputJSON(result)
	}
	return nil
}
