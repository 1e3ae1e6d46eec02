package main

import (
	"fmt"

	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/s2"
	"github.com/matsen/searchforest/internal/storage"
	"github.com/spf13/cobra"
)

var (
	fetchHops      int
	fetchRefLimit  int
	fetchMaxPapers int
	fetchDryRun    bool
)

func init() {
	fetchCmd.Flags().IntVar(&fetchHops, "hops", 1, "Reference levels to expand from the seeds")
	fetchCmd.Flags().IntVar(&fetchRefLimit, "ref-limit", s2.DefaultReferencesLimit, "Maximum references fetched per paper")
	fetchCmd.Flags().IntVar(&fetchMaxPapers, "max-papers", 500, "Stop adding papers after this many (0 = no cap)")
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "Show what would be imported without writing")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <paper-id>...",
	Short: "Grow the corpus from Semantic Scholar",
	Long: `Fetch seed papers and their references from the Semantic Scholar
Academic Graph API and merge them into the corpus.

Seeds may be DOI:..., ARXIV:..., PMID:..., CorpusId:... or raw S2 ids.
Fetched papers are keyed by their S2 id. Set S2_API_KEY (or put it in .env)
for the keyed rate limit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

// FetchResult is the response for the fetch command.
type FetchResult struct {
	*s2.CrawlResult
	storage.MergeResult
	Total  int  `json:"total"`
	DryRun bool `json:"dry_run,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	seeds := make([]s2.PaperIdentifier, 0, len(args))
	for _, arg := range args {
		id, err := s2.ParsePaperID(arg)
		if err != nil {
			exitWithError(ExitError, "%s: %v", arg, err)
		}
		seeds = append(seeds, id)
	}

	crawl, err := s2.Crawl(cmd.Context(), s2.NewClient(), seeds, s2.CrawlOptions{
		Hops:      fetchHops,
		RefLimit:  fetchRefLimit,
		MaxPapers: fetchMaxPapers,
	})
	if err != nil {
		if s2.IsNotFound(err) {
			exitWithError(ExitNotFound, "%v", err)
		}
		exitWithError(ExitError, "fetching from Semantic Scholar: %v", err)
	}

	papersPath := config.PapersPath(repoRoot)
	existing, err := storage.ReadAll(papersPath)
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %v", err)
	}
	merged, res := storage.Merge(existing, crawl.Papers)
	result := FetchResult{CrawlResult: crawl, MergeResult: res, Total: len(merged), DryRun: fetchDryRun}

	if !fetchDryRun {
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
		if fetchDryRun {
			verb = "Would import"
		}
		fmt.Printf("Fetched %d papers from %d seeds (%d API calls)\n", len(crawl.Papers), len(crawl.Seeds), crawl.Fetched)
		if len(crawl.Unavailable) > 0 {
			fmt.Printf("  references unavailable for %d papers\n", len(crawl.Unavailable))
		}
		fmt.Printf("%s %d new, %d updated, %d skipped (%d papers total)\n", verb, res.Added, res.Updated, res.Skipped, len(merged))
	} else {
		outputJSON(result)
	}
	return nil
}
