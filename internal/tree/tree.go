// Package tree expands a keyword tree over the two-hop citation
// neighborhood of a set of root papers.
//
// A build walks references from the roots, extracts keywords from the
// abstracts of each hop, links hop-2 keywords under the hop-1 keywords of
// the papers that cite them, and attaches the supporting papers of every
// keyword. The result is a nested tree chosen by MMR, the flat keyword
// graph it was chosen from, and the keyword to papers index.
package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/matsen/searchforest/internal/citation"
	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/paper"
	"github.com/matsen/searchforest/internal/semantic"
)

// ErrInvalidRequest marks a request rejected before any work is done.
var ErrInvalidRequest = errors.New("invalid tree request")

// Steps reported by StepError.
const (
	StepEmbed    = "embed"
	StepSemantic = "semantic"
	StepBackfill = "backfill"
)

// StepError is an upstream failure during one step of a build.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("tree %s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsBackfillError reports whether err came from the vector search backfill,
// the one step a caller can drop and retry without.
func IsBackfillError(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Step == StepBackfill
}

// Corpus is the read-only paper metadata and citation graph.
type Corpus interface {
	Paper(id string) (paper.Paper, bool)
	Graph() *citation.Graph
}

// Embedder embeds a batch of texts, aligned with the input.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error)
}

// Searcher finds papers near a free-text query.
type Searcher interface {
	Search(ctx context.Context, text string, topK int) ([]semantic.SearchResult, error)
}

// Request describes one build.
type Request struct {
	RootContext  string   `json:"root_context"`
	RootPaperIDs []string `json:"root_paper_ids"`
	K1           int      `json:"k1"`
	K2           int      `json:"k2"`
	PIDLimit     int      `json:"pid_limit"`
}

// Validate rejects empty roots and non-positive limits.
func (r Request) Validate() error {
	switch {
	case len(r.RootPaperIDs) == 0:
		return fmt.Errorf("%w: no root papers", ErrInvalidRequest)
	case r.K1 <= 0:
		return fmt.Errorf("%w: k1 must be positive, got %d", ErrInvalidRequest, r.K1)
	case r.K2 <= 0:
		return fmt.Errorf("%w: k2 must be positive, got %d", ErrInvalidRequest, r.K2)
	case r.PIDLimit <= 0:
		return fmt.Errorf("%w: pid_limit must be positive, got %d", ErrInvalidRequest, r.PIDLimit)
	}
	return nil
}

// PaperScore is one supporting paper of a keyword.
type PaperScore struct {
	PaperID string  `json:"paper_id"`
	Score   float64 `json:"score"`
}

// KeywordPapers maps a keyword to its supporting papers, best first.
type KeywordPapers map[string][]PaperScore

// IDs returns the paper ids supporting keyword, in order.
func (kp KeywordPapers) IDs(keyword string) []string {
	list := kp[keyword]
	out := make([]string, len(list))
	for i, ps := range list {
		out[i] = ps.PaperID
	}
	return out
}

// Node is one keyword of the nested tree.
type Node struct {
	ID        string       `json:"id"`
	Depth     int          `json:"depth"`
	Value     float64      `json:"value"`
	Sim       float64      `json:"sim"`
	SimScaled float64      `json:"sim_scaled"`
	Context   string       `json:"context,omitempty"`
	Example   string       `json:"example,omitempty"`
	Papers    []PaperScore `json:"papers,omitempty"`
	Children  []*Node      `json:"children"`
}

// Walk visits n and its descendants depth first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// GraphNode is a keyword of the flat graph. Identity is (ID, Depth).
type GraphNode struct {
	ID        string  `json:"id"`
	Depth     int     `json:"depth"`
	Sim       float64 `json:"sim"`
	SimScaled float64 `json:"sim_scaled"`
	Example   string  `json:"example,omitempty"`
}

// Link is a directed edge of the flat graph.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is every keyword and edge discovered during a build.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []Link      `json:"links"`
}

// Result is the immutable output of a build.
type Result struct {
	Root          *Node         `json:"tree"`
	Graph         Graph         `json:"graph"`
	KeywordPapers KeywordPapers `json:"keyword_papers"`
	Hop1          []string      `json:"hop1"`
	Hop2          []string      `json:"hop2"`
}
