package citation

import "sort"

// CoCitation is an undirected pair of papers that both cite Weight common
// references.
type CoCitation struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
}

// CoCitations returns the co-citation pairs of the graph with weight at
// least minWeight, ordered by weight descending then by (A, B). Within a
// pair A < B.
func (g *Graph) CoCitations(minWeight int) []CoCitation {
	if g == nil {
		return nil
	}
	weights := make(map[[2]string]int)
	for _, citers := range g.citedBy {
		for i := 0; i < len(citers); i++ {
			for j := i + 1; j < len(citers); j++ {
				a, b := citers[i], citers[j]
				if a > b {
					a, b = b, a
				}
				weights[[2]string{a, b}]++
			}
		}
	}

	var out []CoCitation
	for pair, w := range weights {
		if w >= minWeight {
			out = append(out, CoCitation{A: pair[0], B: pair[1], Weight: w})
		}
	}
	sortCoCitations(out)
	return out
}

// CoCitedWith returns the papers sharing at least one reference with id,
// strongest first. The pair is reported with A == id.
func (g *Graph) CoCitedWith(id string) []CoCitation {
	if g == nil {
		return nil
	}
	weights := make(map[string]int)
	for _, ref := range g.refs[id] {
		for _, other := range g.citedBy[ref] {
			if other != id {
				weights[other]++
			}
		}
	}

	out := make([]CoCitation, 0, len(weights))
	for other, w := range weights {
		out = append(out, CoCitation{A: id, B: other, Weight: w})
	}
	sortCoCitations(out)
	return out
}

func sortCoCitations(cs []CoCitation) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Weight != cs[j].Weight {
			return cs[i].Weight > cs[j].Weight
		}
		if cs[i].A != cs[j].A {
			return cs[i].A < cs[j].A
		}
		return cs[i].B < cs[j].B
	})
}
