package main

import (
	"fmt"

	"github.com/matsen/searchforest/internal/citation"
	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify corpus integrity",
	Long: `Verify corpus integrity, reporting invalid papers, duplicate ids,
duplicate citations, and references to papers outside the corpus.

References outside the corpus are legal; they are reported for
information only.`,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status    string       `json:"status"`
	Papers    int          `json:"papers"`
	Citations int          `json:"citations"`
	Dangling  int          `json:"dangling"`
	Issues    []CheckIssue `json:"issues"`
}

// CheckIssue represents a single issue found during check.
type CheckIssue struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Target string `json:"target,omitempty"`
	Count  int    `json:"count,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	papers, err := storage.ReadAll(config.PapersPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %v", err)
	}

	issues := []CheckIssue{}
	known := make(map[string]bool, len(papers))
	var edges []citation.Edge
	for _, p := range papers {
		if err := p.Validate(); err != nil {
			issues = append(issues, CheckIssue{Type: "invalid_paper", ID: p.ID, Detail: err.Error()})
			continue
		}
		if known[p.ID] {
			issues = append(issues, CheckIssue{Type: "duplicate_id", ID: p.ID})
		}
		known[p.ID] = true
		for _, ref := range p.References {
			edges = append(edges, citation.Edge{Source: p.ID, Target: ref})
		}
	}

	for _, d := range citation.FindDuplicates(edges) {
		issues = append(issues, CheckIssue{Type: "duplicate_citation", ID: d.Source, Target: d.Target, Count: d.Count})
	}
	dangling, _ := citation.DetectDangling(edges, known)

	status := "ok"
	if len(issues) > 0 {
		status = "issues"
	}

	if humanOutput {
		if len(issues) == 0 {
			fmt.Printf("Corpus check: OK\n\n")
		} else {
			fmt.Printf("Corpus check: %d issues found\n\n", len(issues))
			for _, issue := range issues {
				switch issue.Type {
				case "invalid_paper":
					fmt.Printf("  [WARN] Invalid paper %q: %s\n", issue.ID, issue.Detail)
				case "duplicate_id":
					fmt.Printf("  [WARN] Duplicate paper id %s\n", issue.ID)
				case "duplicate_citation":
					fmt.Printf("  [WARN] %s cites %s %d times\n", issue.ID, issue.Target, issue.Count)
				}
			}
			fmt.Println()
		}
		fmt.Printf("%d papers, %d citations checked (%d point outside the corpus)\n", len(papers), len(edges), len(dangling))
	} else {
		outputJSON(CheckResult{
			Status:    status,
			Papers:    len(papers),
			Citations: len(edges),
			Dangling:  len(dangling),
			Issues:    issues,
		})
	}
	return nil
}
