package main

import (
	"fmt"

	"github.com/matsen/searchforest/internal/citation"
	"github.com/spf13/cobra"
)

var (
	cociteLimit     int
	cociteMinWeight int
)

func init() {
	cociteCmd.Flags().IntVarP(&cociteLimit, "limit", "l", DefaultSearchLimit, "Maximum number of neighbors (0 for all)")
	cociteCmd.Flags().IntVar(&cociteMinWeight, "min-weight", 1, "Minimum number of shared references")
	rootCmd.AddCommand(cociteCmd)
}

var cociteCmd = &cobra.Command{
	Use:   "cocite [paper-id]",
	Short: "List papers sharing references with a paper",
	Long: `List the co-citation neighbors of a paper: papers that cite at least
one of the same references, strongest first.

Without an id, lists the strongest co-citation pairs of the corpus.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCocite,
}

// CociteResponse is the response for the cocite command.
type CociteResponse struct {
	Paper string                `json:"paper,omitempty"`
	Pairs []citation.CoCitation `json:"pairs"`
	Total int                   `json:"total"`
}

func runCocite(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(cmd)
	defer a.Close()
	c := a.mustCorpus()

	var resp CociteResponse
	if len(args) == 1 {
		resp.Paper = args[0]
		if _, ok := c.Paper(resp.Paper); !ok {
			exitWithError(ExitNotFound, "paper %q not found", resp.Paper)
		}
		for _, cc := range c.Graph().CoCitedWith(resp.Paper) {
			if cc.Weight >= cociteMinWeight {
				resp.Pairs = append(resp.Pairs, cc)
			}
		}
	} else {
		resp.Pairs = c.Graph().CoCitations(cociteMinWeight)
	}
	resp.Total = len(resp.Pairs)
	if cociteLimit > 0 && len(resp.Pairs) > cociteLimit {
		resp.Pairs = resp.Pairs[:cociteLimit]
	}
	if resp.Pairs == nil {
		resp.Pairs = []citation.CoCitation{}
	}

	if humanOutput {
		fmt.Printf("%d co-citation pairs\n\n", resp.Total)
		for _, cc := range resp.Pairs {
			fmt.Printf("  [%d] %s  %s\n", cc.Weight, cc.A, cc.B)
		}
	} else {
		outputJSON(resp)
	}
	return nil
}
