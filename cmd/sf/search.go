package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/searchforest/internal/semantic"
	"github.com/spf13/cobra"
)

var (
	searchLimit    int
	searchSemantic bool
)

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", DefaultSearchLimit, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "Rank by embedding similarity instead of full-text match")
	searchCmd.Flags().String("provider", "", "Embedding provider: ollama or hash (default from config)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search papers",
	Long: `Search papers by title, abstract, and authors.

With --semantic the query is embedded and compared against the semantic
index, which must be built first with 'sf index build'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []PaperSummary `json:"results"`
	Total   int            `json:"total"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	a := mustOpenApp(cmd)
	defer a.Close()

	var results []PaperSummary
	if searchSemantic {
		results = semanticSearch(cmd.Context(), a, query)
	} else {
		papers, err := a.db.Search(query, searchLimit)
		if err != nil {
			exitWithError(ExitError, "searching: %v", err)
		}
		results = make([]PaperSummary, 0, len(papers))
		for _, p := range papers {
			results = append(results, summarize(p))
		}
	}

	if humanOutput {
		fmt.Printf("Found %d papers for %q\n\n", len(results), query)
		printPapersHuman(results)
	} else {
		outputJSON(SearchResponse{Query: query, Results: results, Total: len(results)})
	}
	return nil
}

func semanticSearch(ctx context.Context, a *app, query string) []PaperSummary {
	idx := a.mustIndex()
	hits, err := semantic.NewTextSearcher(idx, a.mustProvider()).Search(ctx, query, searchLimit)
	if err != nil {
		exitWithError(ExitDataError, "semantic search: %v", err)
	}
	return buildSearchResults(a, hits)
}

// buildSearchResults resolves index hits to papers. Hits for papers no
// longer in the database are skipped.
func buildSearchResults(a *app, hits []semantic.SearchResult) []PaperSummary {
	out := make([]PaperSummary, 0, len(hits))
	for _, h := range hits {
		p, err := a.db.GetByID(h.PaperID)
		if err != nil || p == nil {
			continue
		}
		s := summarize(*p)
		sim := h.Similarity
		s.Similarity = &sim
		out = append(out, s)
	}
	return out
}
