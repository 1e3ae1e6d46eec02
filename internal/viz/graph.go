package viz

import (
	"github.com/matsen/searchforest/internal/tree"
)

// FromResult converts a tree build into renderable graph data. A keyword
// reached at several depths becomes one node placed at its shallowest depth.
func FromResult(res *tree.Result) *GraphData {
	g := &GraphData{}
	if res == nil {
		return g
	}
	if res.Root != nil {
		g.Title = res.Root.ID
	}

	index := make(map[string]int, len(res.Graph.Nodes))
	for _, n := range res.Graph.Nodes {
		if i, ok := index[n.ID]; ok {
			if n.Depth < g.Nodes[i].Depth {
				g.Nodes[i] = newNode(n, res.KeywordPapers)
			}
			continue
		}
		index[n.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, newNode(n, res.KeywordPapers))
	}

	seen := make(map[Edge]bool, len(res.Graph.Links))
	for _, l := range res.Graph.Links {
		e := Edge{Source: l.Source, Target: l.Target}
		_, okS := index[e.Source]
		_, okT := index[e.Target]
		if !okS || !okT || seen[e] {
			continue
		}
		seen[e] = true
		g.Edges = append(g.Edges, e)
	}
	return g
}

func newNode(n tree.GraphNode, kp tree.KeywordPapers) Node {
	typ := NodeTypeKeyword
	if n.Depth == 0 {
		typ = NodeTypeRoot
	}
	return Node{
		ID:         n.ID,
		Type:       typ,
		Label:      n.ID,
		Depth:      n.Depth,
		Sim:        n.Sim,
		SimScaled:  n.SimScaled,
		Example:    n.Example,
		PaperCount: len(kp[n.ID]),
	}
}
