package main

import (
	"fmt"
	"os"
	"time"

	"github.com/matsen/searchforest/internal/semantic"
	"github.com/spf13/cobra"
)

var noProgress bool

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexCheckCmd)

	indexBuildCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
	indexBuildCmd.Flags().String("provider", "", "Embedding provider: ollama or hash (default from config)")
	indexBuildCmd.Flags().String("model", "", "Embedding model (default from config)")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the semantic search index",
	Long:  `Commands for building and checking the semantic search index.`,
}

// IndexBuildResult is the response for index build command.
type IndexBuildResult struct {
	Status          string  `json:"status"`
	PapersIndexed   int     `json:"papers_indexed"`
	PapersSkipped   int     `json:"papers_skipped"`
	SkippedReason   string  `json:"skipped_reason"`
	DurationSeconds float64 `json:"duration_seconds"`
	Model           string  `json:"model"`
	IndexSizeBytes  int64   `json:"index_size_bytes"`
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or rebuild the semantic index",
	Long: `Build or rebuild the semantic index from paper abstracts.

The index backs 'sf search --semantic' and fills short keyword paper
lists during tree builds. With the Ollama provider, the embedding model
must be available ('ollama pull all-minilm:l6-v2').`,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := mustOpenApp(cmd)
	defer a.Close()

	a.mustCheckProvider(ctx)
	provider := a.mustProvider()

	papers, err := a.db.ListAll(0)
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}

	builder := semantic.NewBuilder(provider, a.db)
	builder.SetBatchSize(a.cfg.Embedding.BatchSize)
	if !noProgress && humanOutput {
		builder.SetProgressReporter(semantic.ProgressFunc(printProgress))
		fmt.Fprintf(os.Stderr, "Building semantic index...\n")
	}

	idx, stats, err := builder.Build(ctx, papers)
	if err != nil {
		exitWithError(ExitError, "building index: %v", err)
	}
	if err := idx.Save(a.root); err != nil {
		exitWithError(ExitError, "saving index: %v", err)
	}

	indexSize, err := semantic.IndexSize(a.root)
	if err != nil {
		indexSize = 0 // Non-fatal
	}
	stats.IndexSizeBytes = indexSize

	if humanOutput && !noProgress {
		fmt.Fprintf(os.Stderr, "\r%50s\r", "")
	}

	if humanOutput {
		fmt.Printf("\nBuild complete:\n")
		fmt.Printf("  Papers indexed: %d\n", stats.PapersIndexed)
		fmt.Printf("  Papers skipped: %d (%s)\n", stats.PapersSkipped, stats.SkippedReason)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Index size: %s\n", formatBytes(stats.IndexSizeBytes))
		fmt.Printf("  Model: %s\n", provider.ModelName())
	} else {
		outputJSON(IndexBuildResult{
			Status:          "complete",
			PapersIndexed:   stats.PapersIndexed,
			PapersSkipped:   stats.PapersSkipped,
			SkippedReason:   stats.SkippedReason,
			DurationSeconds: stats.Duration.Seconds(),
			Model:           provider.ModelName(),
			IndexSizeBytes:  stats.IndexSizeBytes,
		})
	}
	return nil
}

// IndexCheckResult is the response for index check command.
type IndexCheckResult struct {
	Status string `json:"status"`
	semantic.CheckResult
	PapersTotal    int    `json:"papers_total"`
	Model          string `json:"model"`
	IndexCreated   string `json:"index_created"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
	Recommendation string `json:"recommendation,omitempty"`
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check semantic index health",
	Long: `Check whether the semantic index covers every paper with an abstract,
and whether any indexed abstract changed since it was embedded.`,
	RunE: runIndexCheck,
}

// maxListedIDs caps the id lists printed by index check.
const maxListedIDs = 10

func runIndexCheck(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(cmd)
	defer a.Close()

	idx := a.mustIndex()
	papers, err := a.db.ListAll(0)
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}
	check, err := semantic.Check(idx, papers, a.db)
	if err != nil {
		exitWithError(ExitError, "checking index: %v", err)
	}
	indexSize, _ := semantic.IndexSize(a.root)

	result := IndexCheckResult{
		Status:         "healthy",
		CheckResult:    check,
		PapersTotal:    len(papers),
		Model:          idx.ModelName,
		IndexCreated:   idx.CreatedAt.Format(time.RFC3339),
		IndexSizeBytes: indexSize,
	}
	exitCode := ExitSuccess
	if !check.Fresh() {
		result.Status = "stale"
		result.Recommendation = "Run 'sf index build' to update the index"
		exitCode = ExitIndexStale
	}
	result.Missing = capIDs(result.Missing)
	result.Stale = capIDs(result.Stale)
	result.Orphaned = capIDs(result.Orphaned)

	if humanOutput {
		fmt.Printf("Semantic Index Status: %s\n\n", result.Status)
		fmt.Printf("Papers:\n")
		fmt.Printf("  Total in database: %d\n", len(papers))
		fmt.Printf("  With abstracts: %d\n", check.Eligible)
		fmt.Printf("  In semantic index: %d\n", check.Indexed)
		fmt.Printf("  Missing from index: %d\n", len(check.Missing))
		fmt.Printf("  Changed since indexing: %d\n", len(check.Stale))
		fmt.Printf("  No longer eligible: %d\n", len(check.Orphaned))
		fmt.Printf("\nIndex Info:\n")
		fmt.Printf("  Model: %s\n", idx.ModelName)
		fmt.Printf("  Created: %s\n", idx.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Size: %s\n", formatBytes(indexSize))
		if result.Recommendation != "" {
			fmt.Printf("\n%s\n", result.Recommendation)
		}
	} else {
		outputJSON(result)
	}

	if exitCode != ExitSuccess {
		os.Exit(exitCode)
	}
	return nil
}

func capIDs(ids []string) []string {
	if len(ids) > maxListedIDs {
		return ids[:maxListedIDs]
	}
	return ids
}
