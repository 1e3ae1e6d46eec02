package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/searchforest/internal/logger"
	"github.com/matsen/searchforest/internal/tree"
	"github.com/matsen/searchforest/internal/viz"
	"github.com/spf13/cobra"
)

var (
	treePapers []string
	treeHTML   string
	treeLayout string
)

func init() {
	treeFlags(treeCmd)
	treeCmd.Flags().StringSliceVarP(&treePapers, "paper", "p", nil, "Root paper id (repeatable)")
	treeCmd.Flags().StringVar(&treeHTML, "html", "", "Also write the keyword graph as HTML to this file")
	treeCmd.Flags().StringVar(&treeLayout, "layout", "tree", "HTML layout: "+strings.Join(viz.ValidLayouts, ", "))
	treeCmd.MarkFlagRequired("paper")
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree <query> --paper ID...",
	Short: "Build a keyword tree around root papers",
	Long: `Build a two-level keyword tree for a query and a set of root papers.

Keywords are extracted from the abstracts of the papers the roots cite
(hop 1) and the papers those cite (hop 2), then selected for relevance
to the query and diversity among siblings.

Examples:
  sf tree "protein language models" --paper Rives2021 --paper Lin2023
  sf tree "phylogenetics" -p Felsenstein1981 --k1 5 --html tree.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	strict, _ := cmd.Flags().GetBool("strict")

	a := mustOpenApp(cmd)
	defer a.Close()

	primary, fallback := a.builders(strict)
	req := tree.Request{
		RootContext:  query,
		RootPaperIDs: treePapers,
		K1:           a.cfg.Tree.K1,
		K2:           a.cfg.Tree.K2,
		PIDLimit:     a.cfg.Tree.PIDLimit,
	}

	ctx := cmd.Context()
	res, err := primary.Build(ctx, req)
	if err != nil && tree.IsBackfillError(err) && fallback != nil {
		logger.Warn("vector search backfill failed, rebuilding without it", "err", err)
		res, err = fallback.Build(ctx, req)
	}
	if err != nil {
		exitWithError(treeExitCode(err), "building tree: %v", err)
	}

	if treeHTML != "" {
		html, err := viz.GenerateHTML(viz.FromResult(res), viz.HTMLOptions{Layout: treeLayout})
		if err != nil {
			exitWithError(ExitError, "rendering HTML: %v", err)
		}
		if err := os.WriteFile(treeHTML, []byte(html), 0644); err != nil {
			exitWithError(ExitError, "writing %s: %v", treeHTML, err)
		}
	}

	if humanOutput {
		printTreeHuman(res)
		if treeHTML != "" {
			fmt.Printf("\nWrote %s\n", treeHTML)
		}
	} else {
		outputJSON(res)
	}
	return nil
}

func treeExitCode(err error) int {
	var stepErr *tree.StepError
	switch {
	case errors.Is(err, tree.ErrInvalidRequest):
		return ExitError
	case errors.As(err, &stepErr):
		return ExitDataError
	default:
		return ExitError
	}
}

func printTreeHuman(res *tree.Result) {
	fmt.Printf("%d hop-1 papers, %d hop-2 papers, %d keywords\n\n", len(res.Hop1), len(res.Hop2), len(res.KeywordPapers))
	var walk func(n *tree.Node, indent string)
	walk = func(n *tree.Node, indent string) {
		fmt.Printf("%s%s  [sim %.3f, %d papers]\n", indent, n.ID, n.Sim, len(n.Papers))
		if n.Example != "" {
			fmt.Printf("%s    e.g. %s\n", indent, truncateString(n.Example, SearchTitleMaxLen))
		}
		for _, c := range n.Children {
			walk(c, indent+"  ")
		}
	}
	walk(res.Root, "")
}
