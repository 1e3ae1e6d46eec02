package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/vecmath"
)

// Routing errors.
var (
	ErrInvalidTopK       = errors.New("top_k must be positive")
	ErrDimensionMismatch = errors.New("query embedding does not match centroid text width")
)

// Embedder embeds a single query.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Embedding, error)
}

// Hit is one routed cluster.
type Hit struct {
	ClusterID  int     `json:"cluster_id"`
	Similarity float64 `json:"similarity"`
}

// Router answers nearest-centroid queries by inner product.
type Router struct {
	table     *Table
	embedder  Embedder
	centroids *mat.Dense
}

// NewRouter stacks the table's centroids into a matrix.
func NewRouter(table *Table, embedder Embedder) *Router {
	width := table.TextDims + table.GraphDims
	m := mat.NewDense(len(table.Clusters), width, nil)
	for i, c := range table.Clusters {
		m.SetRow(i, vecmath.ToFloat64(c.Centroid))
	}
	return &Router{table: table, embedder: embedder, centroids: m}
}

// Route embeds query, appends a zero graph part, L2-normalizes, and returns
// up to topK clusters by inner product with their centroids. Ties go to the
// lower cluster id.
func (r *Router) Route(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if emb.Dimensions() != r.table.TextDims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, emb.Dimensions(), r.table.TextDims)
	}

	q := r.QueryVector(emb)
	var scores mat.VecDense
	scores.MulVec(r.centroids, mat.NewVecDense(len(q), q))

	hits := make([]Hit, len(r.table.Clusters))
	for i, c := range r.table.Clusters {
		hits[i] = Hit{ClusterID: c.ID, Similarity: scores.AtVec(i)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ClusterID < hits[j].ClusterID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// QueryVector builds the combined-space query: the normalized text
// embedding followed by GraphDims zeros, normalized again.
func (r *Router) QueryVector(emb embedding.Embedding) []float64 {
	text := vecmath.Normalize(vecmath.ToFloat64(emb.Vector))
	q := make([]float64, len(text)+r.table.GraphDims)
	copy(q, text)
	return vecmath.Normalize(q)
}
