package main

import (
	"fmt"

	"github.com/matsen/searchforest/internal/citation"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(neighborsCmd)
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <paper-id>...",
	Short: "Show the two-hop reference neighborhood of papers",
	Long: `Show the papers referenced by the given papers (hop 1), the papers
those reference (hop 2), and the papers citing the first given paper.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNeighbors,
}

// NeighborsResponse is the response for the neighbors command.
type NeighborsResponse struct {
	Roots   []string `json:"roots"`
	Hop1    []string `json:"hop1"`
	Hop2    []string `json:"hop2"`
	CitedBy []string `json:"cited_by"`
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(cmd)
	defer a.Close()

	c := a.mustCorpus()
	for _, id := range args {
		if _, ok := c.Paper(id); !ok {
			exitWithError(ExitNotFound, "paper %q not found", id)
		}
	}

	g := c.Graph()
	n := citation.Collect(g, args)
	resp := NeighborsResponse{
		Roots:   args,
		Hop1:    nonNil(n.Hop1),
		Hop2:    nonNil(n.Hop2),
		CitedBy: nonNil(g.CitedBy(args[0])),
	}

	if humanOutput {
		fmt.Printf("Hop 1 (%d):\n", len(resp.Hop1))
		printIDs(resp.Hop1)
		fmt.Printf("\nHop 2 (%d):\n", len(resp.Hop2))
		printIDs(resp.Hop2)
		fmt.Printf("\nCited by (%d):\n", len(resp.CitedBy))
		printIDs(resp.CitedBy)
	} else {
		outputJSON(resp)
	}
	return nil
}

func printIDs(ids []string) {
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
