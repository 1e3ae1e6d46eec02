package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/searchforest/internal/cluster"
	"github.com/matsen/searchforest/internal/explore"
	"github.com/spf13/cobra"
)

var exploreNoCache bool

func init() {
	treeFlags(exploreCmd)
	exploreCmd.Flags().Int("top-k", 0, "Number of clusters (default from config)")
	exploreCmd.Flags().BoolVar(&exploreNoCache, "no-cache", false, "Ignore and do not write the tree cache")
	rootCmd.AddCommand(exploreCmd)
}

var exploreCmd = &cobra.Command{
	Use:   "explore <query>",
	Short: "Route a query to clusters and build a keyword tree for each",
	Long: `Route a query to its nearest clusters and build a keyword tree rooted
at each cluster's papers.

Responses are cached per query and parameters for cache.ttl; a cached
response is marked "cached": true.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplore,
}

func exploreRequest(a *app, args []string) explore.Request {
	return explore.Request{
		Query:    strings.Join(args, " "),
		TopK:     a.cfg.Router.TopK,
		K1:       a.cfg.Tree.K1,
		K2:       a.cfg.Tree.K2,
		PIDLimit: a.cfg.Tree.PIDLimit,
	}
}

func runExplore(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	a := mustOpenApp(cmd)
	defer a.Close()

	svc := a.explorer(strict, !exploreNoCache)
	resp, err := svc.Explore(cmd.Context(), exploreRequest(a, args))
	if err != nil {
		exitWithError(exploreExitCode(err), "%v", err)
	}

	if humanOutput {
		if resp.Cached {
			fmt.Printf("(cached)\n")
		}
		for _, ct := range resp.Clusters {
			fmt.Printf("Cluster %d [%.3f] %s\n", ct.ClusterID, ct.Similarity, strings.Join(ct.Keywords, ", "))
			printTreeHuman(ct.Result)
			fmt.Println()
		}
	} else {
		outputJSON(resp)
	}
	return nil
}

func exploreExitCode(err error) int {
	switch {
	case errors.Is(err, explore.ErrEmptyQuery):
		return ExitError
	case errors.Is(err, cluster.ErrDimensionMismatch):
		return ExitConfigError
	case errors.Is(err, cluster.ErrClusterNotFound):
		return ExitNotFound
	default:
		return treeExitCode(err)
	}
}
