// Package viz renders keyword graphs as standalone Cytoscape.js pages.
package viz

// Node types.
const (
	NodeTypeRoot    = "root"
	NodeTypeKeyword = "keyword"
)

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Title string `json:"-"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one keyword in the graph.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
	Depth int    `json:"depth"`

	// Tooltip fields
	Sim       float64 `json:"sim"`
	SimScaled float64 `json:"simScaled"`
	Example   string  `json:"example,omitempty"`

	// Sizing
	PaperCount int `json:"paperCount"`
}

// Edge links a keyword to a keyword found in the papers it cites.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
