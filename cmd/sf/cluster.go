package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/searchforest/internal/cluster"
	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/keyword"
	"github.com/spf13/cobra"
)

var (
	clusterKeywordsTop  int
	clusterKeywordsSave bool
)

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.AddCommand(clusterImportCmd)
	clusterCmd.AddCommand(clusterListCmd)
	clusterCmd.AddCommand(clusterKeywordsCmd)

	clusterKeywordsCmd.Flags().IntVarP(&clusterKeywordsTop, "top", "n", cluster.DefaultKeywordCount, "Number of keywords")
	clusterKeywordsCmd.Flags().BoolVar(&clusterKeywordsSave, "save", false, "Store the keywords in the cluster table")
	clusterKeywordsCmd.Flags().String("provider", "", "Embedding provider: ollama or hash (default from config)")
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage the paper cluster table",
	Long: `Commands for the precomputed paper clusters that queries are routed to.

Clusters are computed outside sf. Each JSONL line carries an id, the
member paper ids, optional display keywords, and a centroid whose first
part lives in the text embedding space and whose trailing
router.graph_dims values live in the graph embedding space.`,
}

var clusterImportCmd = &cobra.Command{
	Use:   "import [clusters.jsonl]",
	Short: "Import the cluster table",
	Long: `Import clusters from JSONL (default .searchforest/clusters.jsonl) and
store them in the cache for routing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClusterImport,
}

// ClusterImportResult is the response for cluster import.
type ClusterImportResult struct {
	Status    string `json:"status"`
	Clusters  int    `json:"clusters"`
	TextDims  int    `json:"text_dims"`
	GraphDims int    `json:"graph_dims"`
	Assigned  int    `json:"assigned_papers"`
}

func runClusterImport(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(cmd)
	defer a.Close()

	path := config.ClustersPath(a.root)
	if len(args) == 1 {
		path = args[0]
	}
	table, err := cluster.Import(path, a.cfg.Router.GraphDims)
	if err != nil {
		exitWithError(ExitDataError, "importing clusters from %s: %v", path, err)
	}
	if table.TextDims != a.cfg.Embedding.Dimensions {
		exitWithError(ExitDataError, "cluster centroids have %d text dimensions, embedding model has %d", table.TextDims, a.cfg.Embedding.Dimensions)
	}
	if err := table.Save(a.root); err != nil {
		exitWithError(ExitError, "saving cluster table: %v", err)
	}

	res := ClusterImportResult{
		Status:    "imported",
		Clusters:  len(table.Clusters),
		TextDims:  table.TextDims,
		GraphDims: table.GraphDims,
		Assigned:  len(table.Assignment()),
	}
	if humanOutput {
		fmt.Printf("Imported %d clusters covering %d papers (%d text + %d graph dims)\n", res.Clusters, res.Assigned, res.TextDims, res.GraphDims)
	} else {
		outputJSON(res)
	}
	return nil
}

var clusterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clusters",
	RunE:  runClusterList,
}

// ClusterSummary is a cluster in list output.
type ClusterSummary struct {
	ID       int      `json:"id"`
	Size     int      `json:"size"`
	Keywords []string `json:"keywords"`
}

func runClusterList(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(cmd)
	defer a.Close()
	table := a.mustTable()

	out := make([]ClusterSummary, 0, len(table.Clusters))
	for _, c := range table.Clusters {
		kws := c.Keywords
		if kws == nil {
			kws = []string{}
		}
		out = append(out, ClusterSummary{ID: c.ID, Size: c.Size, Keywords: kws})
	}

	if humanOutput {
		for _, c := range out {
			fmt.Printf("%4d  %5d papers  %s\n", c.ID, c.Size, truncateString(strings.Join(c.Keywords, ", "), ListTitleMaxLen))
		}
	} else {
		outputJSON(out)
	}
	return nil
}

var clusterKeywordsCmd = &cobra.Command{
	Use:   "keywords <cluster-id>",
	Short: "Derive display keywords for a cluster",
	Long: `Rank recurring phrases of a cluster's member abstracts by similarity to
the text part of the cluster centroid.`,
	Args: cobra.ExactArgs(1),
	RunE: runClusterKeywords,
}

// ClusterKeywordsResult is the response for cluster keywords.
type ClusterKeywordsResult struct {
	ClusterID int                 `json:"cluster_id"`
	Keywords  []keyword.Candidate `json:"keywords"`
	Saved     bool                `json:"saved"`
}

func runClusterKeywords(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid cluster id %q", args[0])
	}

	a := mustOpenApp(cmd)
	defer a.Close()
	table := a.mustTable()
	if _, err := table.Get(id); err != nil {
		exitWithError(ExitNotFound, "%v", err)
	}

	ctx := cmd.Context()
	a.mustCheckProvider(ctx)
	extractor := keyword.NewSemantic(a.mustProvider())
	cands, err := table.DeriveKeywords(ctx, id, a.mustCorpus(), extractor, clusterKeywordsTop)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	res := ClusterKeywordsResult{ClusterID: id, Keywords: cands}
	if clusterKeywordsSave {
		if err := table.SetKeywords(id, keyword.Terms(cands)); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if err := table.Save(a.root); err != nil {
			exitWithError(ExitError, "saving cluster table: %v", err)
		}
		res.Saved = true
	}

	if humanOutput {
		fmt.Printf("Cluster %d:\n", id)
		for _, c := range cands {
			fmt.Printf("  [%.3f] %s\n", c.Score, c.Term)
		}
	} else {
		outputJSON(res)
	}
	return nil
}
