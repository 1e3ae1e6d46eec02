// Package corpus is the read-only, in-memory view of the papers and their
// citation graph shared by every tree build in a process.
package corpus

import (
	"fmt"
	"sort"

	"github.com/matsen/searchforest/internal/citation"
	"github.com/matsen/searchforest/internal/paper"
	"github.com/matsen/searchforest/internal/storage"
)

// Corpus answers paper lookups and exposes the citation graph. It is never
// mutated after construction, so it may be shared across goroutines.
type Corpus struct {
	papers map[string]paper.Paper
	graph  *citation.Graph
}

// New indexes papers by id. On duplicate ids the last paper wins.
func New(papers []paper.Paper) *Corpus {
	byID := make(map[string]paper.Paper, len(papers))
	for _, p := range papers {
		byID[p.ID] = p
	}
	return &Corpus{papers: byID, graph: citation.NewGraph(papers)}
}

// Lister is the subset of the SQLite cache the corpus loads from.
type Lister interface {
	ListAll(limit int) ([]paper.Paper, error)
}

// FromStore loads every paper, references included, from the cache.
func FromStore(store Lister) (*Corpus, error) {
	papers, err := store.ListAll(0)
	if err != nil {
		return nil, fmt.Errorf("loading papers: %w", err)
	}
	return New(papers), nil
}

// Load reads a papers JSONL file.
func Load(path string) (*Corpus, error) {
	papers, err := storage.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("loading papers: %w", err)
	}
	return New(papers), nil
}

// Paper returns the metadata of id.
func (c *Corpus) Paper(id string) (paper.Paper, bool) {
	p, ok := c.papers[id]
	return p, ok
}

// Graph returns the citation graph.
func (c *Corpus) Graph() *citation.Graph {
	return c.graph
}

// Len returns the number of papers with metadata.
func (c *Corpus) Len() int {
	return len(c.papers)
}

// IDs returns every paper id in ascending order.
func (c *Corpus) IDs() []string {
	ids := make([]string, 0, len(c.papers))
	for id := range c.papers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Abstracts returns the non-blank abstracts of ids in the given order,
// skipping ids without metadata.
func (c *Corpus) Abstracts(ids []string) []string {
	var out []string
	for _, id := range ids {
		if p, ok := c.papers[id]; ok && p.HasAbstract() {
			out = append(out, p.Abstract)
		}
	}
	return out
}
