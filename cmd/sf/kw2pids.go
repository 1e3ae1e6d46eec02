package main

import (
	"errors"
	"fmt"

	"github.com/matsen/searchforest/internal/explore"
	"github.com/matsen/searchforest/internal/tree"
	"github.com/spf13/cobra"
)

func init() {
	treeFlags(kw2pidsCmd)
	kw2pidsCmd.Flags().Int("top-k", 0, "Number of clusters (default from config)")
	rootCmd.AddCommand(kw2pidsCmd)
}

var kw2pidsCmd = &cobra.Command{
	Use:   "kw2pids <query>",
	Short: "Show the cached keyword to paper mapping of an explored query",
	Long: `Print the keyword -> papers mapping from a cached 'sf explore' response
without building anything. The query and parameters must match the
explore call.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKW2PIDs,
}

// KW2PIDsResponse is the response for the kw2pids command.
type KW2PIDsResponse struct {
	Query   string             `json:"query"`
	KW2PIDs tree.KeywordPapers `json:"kw2pids"`
	Message string             `json:"message,omitempty"`
}

func runKW2PIDs(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(cmd)
	defer a.Close()

	req := exploreRequest(a, args)
	svc := explore.New(nil, nil, nil, explore.WithCache(a.db, a.cfg.Cache.TTL))
	kp, err := svc.KeywordPapers(req)

	resp := KW2PIDsResponse{Query: req.Query, KW2PIDs: kp}
	if errors.Is(err, explore.ErrNotCached) {
		resp.Message = "No cached kw2pids available."
		resp.KW2PIDs = tree.KeywordPapers{}
	}

	if humanOutput {
		if resp.Message != "" {
			fmt.Println(resp.Message)
			return nil
		}
		for kw, list := range resp.KW2PIDs {
			fmt.Printf("%s:\n", kw)
			for _, ps := range list {
				fmt.Printf("  [%.3f] %s\n", ps.Score, ps.PaperID)
			}
		}
	} else {
		outputJSON(resp)
	}
	return nil
}
