package citation

import "sort"

// Neighborhood is the two-hop reference neighborhood of a set of roots.
type Neighborhood struct {
	Hop1 []string `json:"hop1"`
	Hop2 []string `json:"hop2"`

	graph *Graph
	// hop1Pos maps each hop1 id to its index in Hop1.
	hop1Pos map[string]int
}

// Collect walks references from roots. Hop1 is the first-seen union of the
// roots' references, excluding the roots. Hop2 is the first-seen union of
// the hop1 papers' references, excluding roots and hop1.
//
// Ids absent from the graph contribute nothing. Cycles terminate because
// each hop is a set.
func Collect(g *Graph, roots []string) Neighborhood {
	rootSet := make(map[string]bool, len(roots))
	for _, r := range roots {
		rootSet[r] = true
	}

	n := Neighborhood{graph: g, hop1Pos: make(map[string]int)}
	for _, r := range roots {
		for _, ref := range g.References(r) {
			if _, dup := n.hop1Pos[ref]; rootSet[ref] || dup {
				continue
			}
			n.hop1Pos[ref] = len(n.Hop1)
			n.Hop1 = append(n.Hop1, ref)
		}
	}

	seen := make(map[string]bool)
	for _, p := range n.Hop1 {
		for _, ref := range g.References(p) {
			if _, inHop1 := n.hop1Pos[ref]; rootSet[ref] || inHop1 || seen[ref] {
				continue
			}
			seen[ref] = true
			n.Hop2 = append(n.Hop2, ref)
		}
	}
	return n
}

// Citers returns the hop1 papers that cite the given hop2 paper, in hop1
// order. It reads the graph's reverse index, so the cost depends on the
// number of citers rather than the size of Hop1.
func (n Neighborhood) Citers(hop2ID string) []string {
	var out []string
	for _, p := range n.graph.CitedBy(hop2ID) {
		if _, ok := n.hop1Pos[p]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return n.hop1Pos[out[i]] < n.hop1Pos[out[j]]
	})
	return out
}
