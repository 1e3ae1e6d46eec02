// Package cluster holds the precomputed paper clusters and routes free-text
// queries to them.
//
// Centroids live in the combined text+graph embedding space: the first
// TextDims components come from the text model and the remaining GraphDims
// from the citation-graph model.
package cluster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/storage"
	"github.com/matsen/searchforest/internal/vecmath"
)

// Errors returned by table operations.
var (
	ErrTableNotFound   = errors.New("cluster table not found (run 'sf cluster import')")
	ErrEmptyTable      = errors.New("cluster table has no clusters")
	ErrCentroidWidth   = errors.New("centroid width mismatch")
	ErrDuplicateID     = errors.New("duplicate cluster id")
	ErrClusterNotFound = errors.New("cluster not found")
)

// TableFileName is the gob file under the cache directory.
const TableFileName = "clusters.gob"

// Cluster is one precomputed cluster.
type Cluster struct {
	ID       int       `json:"id"`
	Size     int       `json:"size"`
	Keywords []string  `json:"keywords"`
	PaperIDs []string  `json:"paper_ids"`
	Centroid []float32 `json:"centroid"`
}

// Table is every cluster, ordered by ascending ID.
type Table struct {
	TextDims  int
	GraphDims int
	Clusters  []Cluster
}

// TablePath returns the gob path of the table for a repository.
func TablePath(root string) string {
	return filepath.Join(config.CachePath(root), TableFileName)
}

// Import reads clusters from a JSONL file, one Cluster per line. Size
// defaults to the number of member papers; every centroid must be wider
// than graphDims and all must share one width.
func Import(path string, graphDims int) (*Table, error) {
	clusters, err := storage.ReadJSONL[Cluster](path)
	if err != nil {
		return nil, err
	}
	return NewTable(clusters, graphDims)
}

// NewTable validates clusters and sorts them by ID.
func NewTable(clusters []Cluster, graphDims int) (*Table, error) {
	if len(clusters) == 0 {
		return nil, ErrEmptyTable
	}

	width := len(clusters[0].Centroid)
	if width <= graphDims {
		return nil, fmt.Errorf("%w: centroid width %d leaves no text part with %d graph dims", ErrCentroidWidth, width, graphDims)
	}

	seen := make(map[int]bool, len(clusters))
	out := make([]Cluster, len(clusters))
	for i, c := range clusters {
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
		if len(c.Centroid) != width {
			return nil, fmt.Errorf("%w: cluster %d has %d, want %d", ErrCentroidWidth, c.ID, len(c.Centroid), width)
		}
		if c.Size == 0 {
			c.Size = len(c.PaperIDs)
		}
		out[i] = c
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return &Table{TextDims: width - graphDims, GraphDims: graphDims, Clusters: out}, nil
}

// Save writes the table to the repository cache.
func (t *Table) Save(root string) error {
	return storage.SaveGob(TablePath(root), t)
}

// LoadTable reads the table from the repository cache.
func LoadTable(root string) (*Table, error) {
	var t Table
	if err := storage.LoadGob(TablePath(root), &t); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Get returns the cluster with id.
func (t *Table) Get(id int) (Cluster, error) {
	i := sort.Search(len(t.Clusters), func(i int) bool { return t.Clusters[i].ID >= id })
	if i == len(t.Clusters) || t.Clusters[i].ID != id {
		return Cluster{}, fmt.Errorf("%w: %d", ErrClusterNotFound, id)
	}
	return t.Clusters[i], nil
}

// SetKeywords replaces the display keywords of a cluster.
func (t *Table) SetKeywords(id int, keywords []string) error {
	if _, err := t.Get(id); err != nil {
		return err
	}
	for i := range t.Clusters {
		if t.Clusters[i].ID == id {
			t.Clusters[i].Keywords = keywords
		}
	}
	return nil
}

// Assignment maps each member paper to its cluster. A paper listed by more
// than one cluster keeps the lowest cluster id.
func (t *Table) Assignment() map[string]int {
	out := make(map[string]int)
	for _, c := range t.Clusters {
		for _, pid := range c.PaperIDs {
			if _, ok := out[pid]; !ok {
				out[pid] = c.ID
			}
		}
	}
	return out
}

// TextCentroid returns the unit-length text part of a cluster's centroid.
func (t *Table) TextCentroid(c Cluster) []float32 {
	return vecmath.ToFloat32(vecmath.Normalize(vecmath.ToFloat64(c.Centroid[:t.TextDims])))
}
