package citation

import "github.com/matsen/searchforest/internal/paper"

// Graph is a read-only directed citation graph. Lookups of unknown ids
// answer "no references"; nothing on the read path returns an error.
//
// A Graph is fully built by its constructor and is safe for concurrent reads.
type Graph struct {
	refs    map[string][]string
	citedBy map[string][]string
	edges   int
}

// NewGraph builds a graph from the references recorded on each paper.
// Repeated references from the same paper are collapsed to their first
// occurrence.
func NewGraph(papers []paper.Paper) *Graph {
	g := &Graph{
		refs:    make(map[string][]string, len(papers)),
		citedBy: make(map[string][]string),
	}
	for _, p := range papers {
		for _, ref := range p.References {
			g.add(p.ID, ref)
		}
	}
	return g
}

// FromEdges builds a graph from an edge list, keeping edge order per source.
func FromEdges(edges []Edge) *Graph {
	g := &Graph{
		refs:    make(map[string][]string),
		citedBy: make(map[string][]string),
	}
	for _, e := range edges {
		g.add(e.Source, e.Target)
	}
	return g
}

func (g *Graph) add(source, target string) {
	if source == "" || target == "" {
		return
	}
	for _, existing := range g.refs[source] {
		if existing == target {
			return
		}
	}
	g.refs[source] = append(g.refs[source], target)
	g.citedBy[target] = append(g.citedBy[target], source)
	g.edges++
}

// References returns the outgoing references of id in recorded order.
// The returned slice must not be modified.
func (g *Graph) References(id string) []string {
	if g == nil {
		return nil
	}
	return g.refs[id]
}

// CitedBy returns the papers citing id, in insertion order.
func (g *Graph) CitedBy(id string) []string {
	if g == nil {
		return nil
	}
	return g.citedBy[id]
}

// NodeCount returns the number of papers with at least one outgoing reference.
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.refs)
}

// EdgeCount returns the number of distinct citations.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return g.edges
}

// Edges flattens the graph back to an edge list.
func (g *Graph) Edges() []Edge {
	if g == nil {
		return nil
	}
	edges := make([]Edge, 0, g.edges)
	for source, targets := range g.refs {
		for _, t := range targets {
			edges = append(edges, Edge{Source: source, Target: t})
		}
	}
	return edges
}
