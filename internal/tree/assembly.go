package tree

import (
	"github.com/matsen/searchforest/internal/selector"
	"github.com/matsen/searchforest/internal/vecmath"
)

// assembly turns the accumulated keyword graph of one build into output
// values.
type assembly struct {
	builder *Builder
	req     Request
	acc     *accumulator
	papers  KeywordPapers
	rootVec []float32
	vectors map[string][]float32
	sims    map[nodeKey]simPair
}

// nest picks the root's children by MMR, attaches every depth-2 keyword to
// its most similar topological parent among them, and picks each parent's
// children by MMR in turn.
func (t *assembly) nest() (*Node, error) {
	root := t.req.RootContext
	freq := t.acc.frequency()
	rootSim := t.sims[nodeKey{root, 0}]
	out := &Node{
		ID:        root,
		Depth:     0,
		Value:     1,
		Sim:       rootSim.raw,
		SimScaled: rootSim.scaled,
		Children:  []*Node{},
	}

	level1, err := t.builder.selector.SelectVectors(selector.VectorRequest{
		Query:      t.rootVec,
		Candidates: t.acc.atDepth(1),
		Vectors:    t.vectors,
		Frequency:  freq,
		K:          t.req.K1,
	})
	if err != nil {
		return nil, err
	}

	assigned := make(map[string][]string, len(level1))
	for _, kw := range t.acc.atDepth(2) {
		if parent, ok := t.bestParent(kw, level1); ok {
			assigned[parent] = append(assigned[parent], kw)
		}
	}

	for _, s := range level1 {
		child := t.node(s, 1, contextLabel(root, s.Term))
		level2, err := t.builder.selector.SelectVectors(selector.VectorRequest{
			Query:      t.rootVec,
			Parent:     t.vectors[s.Term],
			Candidates: assigned[s.Term],
			Vectors:    t.vectors,
			Frequency:  freq,
			K:          t.req.K2,
		})
		if err != nil {
			return nil, err
		}
		for _, g := range level2 {
			child.Children = append(child.Children, t.node(g, 2, contextLabel(root, s.Term, g.Term)))
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

// bestParent returns the selected depth-1 keyword with an edge to kw and
// the highest cosine to it, breaking ties lexically.
func (t *assembly) bestParent(kw string, level1 []selector.Scored) (string, bool) {
	best, bestSim := "", 0.0
	for _, s := range level1 {
		if s.Term == kw || !t.acc.hasEdge(s.Term, kw) {
			continue
		}
		sim := vecmath.Cosine(t.vectors[s.Term], t.vectors[kw])
		if best == "" || sim > bestSim || (sim == bestSim && s.Term < best) {
			best, bestSim = s.Term, sim
		}
	}
	return best, best != ""
}

func (t *assembly) node(s selector.Scored, depth int, context string) *Node {
	sim := t.sims[nodeKey{s.Term, depth}]
	papers := append([]PaperScore(nil), t.papers[s.Term]...)
	return &Node{
		ID:        s.Term,
		Depth:     depth,
		Value:     s.Score,
		Sim:       sim.raw,
		SimScaled: sim.scaled,
		Context:   context,
		Example:   t.example(s.Term),
		Papers:    papers,
		Children:  []*Node{},
	}
}

// example is the title of the best supporting paper that has one.
func (t *assembly) example(kw string) string {
	for _, ps := range t.papers[kw] {
		if p, ok := t.builder.corpus.Paper(ps.PaperID); ok && p.Title != "" {
			return p.Title
		}
	}
	return ""
}

// flat returns every node and edge of the build.
func (t *assembly) flat() Graph {
	g := Graph{
		Nodes: make([]GraphNode, 0, len(t.acc.nodeOrder)),
		Links: make([]Link, len(t.acc.edgeOrder)),
	}
	for _, k := range t.acc.nodeOrder {
		sim := t.sims[k]
		n := GraphNode{ID: k.id, Depth: k.depth, Sim: sim.raw, SimScaled: sim.scaled}
		if k.depth > 0 {
			n.Example = t.example(k.id)
		}
		g.Nodes = append(g.Nodes, n)
	}
	copy(g.Links, t.acc.edgeOrder)
	return g
}
