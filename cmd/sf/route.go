package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/searchforest/internal/cluster"
	"github.com/spf13/cobra"
)

func init() {
	routeCmd.Flags().Int("top-k", 0, "Number of clusters (default from config)")
	routeCmd.Flags().String("provider", "", "Embedding provider: ollama or hash (default from config)")
	rootCmd.AddCommand(routeCmd)
}

var routeCmd = &cobra.Command{
	Use:   "route <query>",
	Short: "Find the clusters nearest to a query",
	Long: `Embed the query, pad it with a zero graph vector, and rank clusters by
similarity to their centroids.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

// RouteHit is a routed cluster in route output.
type RouteHit struct {
	ClusterID  int      `json:"cluster_id"`
	Similarity float64  `json:"similarity"`
	Size       int      `json:"size"`
	Keywords   []string `json:"keywords,omitempty"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	a := mustOpenApp(cmd)
	defer a.Close()

	table := a.mustTable()
	router := cluster.NewRouter(table, a.mustProvider())
	hits, err := router.Route(cmd.Context(), query, a.cfg.Router.TopK)
	if err != nil {
		exitWithError(routeExitCode(err), "routing query: %v", err)
	}

	out := make([]RouteHit, 0, len(hits))
	for _, h := range hits {
		c, err := table.Get(h.ClusterID)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		out = append(out, RouteHit{ClusterID: h.ClusterID, Similarity: h.Similarity, Size: c.Size, Keywords: c.Keywords})
	}

	if humanOutput {
		for i, h := range out {
			fmt.Printf("%d. [%.3f] cluster %d (%d papers) %s\n", i+1, h.Similarity, h.ClusterID, h.Size, strings.Join(h.Keywords, ", "))
		}
	} else {
		outputJSON(out)
	}
	return nil
}

func routeExitCode(err error) int {
	switch {
	case errors.Is(err, cluster.ErrInvalidTopK):
		return ExitError
	case errors.Is(err, cluster.ErrDimensionMismatch):
		return ExitConfigError
	default:
		return ExitDataError
	}
}
