package tree

type nodeKey struct {
	id    string
	depth int
}

// accumulator collects nodes, edges, and paper associations during a single
// build. Insertion order is kept so the output is deterministic.
type accumulator struct {
	nodes     map[nodeKey]bool
	nodeOrder []nodeKey

	edges     map[Link]bool
	edgeOrder []Link

	papers     map[string][]PaperScore
	paperOrder []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		nodes:  make(map[nodeKey]bool),
		edges:  make(map[Link]bool),
		papers: make(map[string][]PaperScore),
	}
}

// addNode records (id, depth) once.
func (a *accumulator) addNode(id string, depth int) {
	k := nodeKey{id, depth}
	if a.nodes[k] {
		return
	}
	a.nodes[k] = true
	a.nodeOrder = append(a.nodeOrder, k)
}

// addEdge records source -> target once. Self loops are dropped.
func (a *accumulator) addEdge(source, target string) {
	l := Link{Source: source, Target: target}
	if source == target || a.edges[l] {
		return
	}
	a.edges[l] = true
	a.edgeOrder = append(a.edgeOrder, l)
}

func (a *accumulator) hasEdge(source, target string) bool {
	return a.edges[Link{Source: source, Target: target}]
}

// addPaper appends a supporting paper to keyword. Duplicates are resolved
// when the lists are finalized.
func (a *accumulator) addPaper(keyword, paperID string, score float64) {
	if _, ok := a.papers[keyword]; !ok {
		a.paperOrder = append(a.paperOrder, keyword)
	}
	a.papers[keyword] = append(a.papers[keyword], PaperScore{PaperID: paperID, Score: score})
}

// atDepth returns the keywords of one depth in insertion order.
func (a *accumulator) atDepth(depth int) []string {
	var out []string
	for _, k := range a.nodeOrder {
		if k.depth == depth {
			out = append(out, k.id)
		}
	}
	return out
}

// frequency returns each keyword's best extraction score.
func (a *accumulator) frequency() map[string]float64 {
	out := make(map[string]float64, len(a.papers))
	for kw, list := range a.papers {
		for _, ps := range list {
			if ps.Score > out[kw] {
				out[kw] = ps.Score
			}
		}
	}
	return out
}

// keywords returns every distinct keyword string in first-seen order.
func (a *accumulator) keywords() []string {
	seen := make(map[string]bool, len(a.nodeOrder))
	var out []string
	for _, k := range a.nodeOrder {
		if k.depth == 0 || seen[k.id] {
			continue
		}
		seen[k.id] = true
		out = append(out, k.id)
	}
	return out
}
