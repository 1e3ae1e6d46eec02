package cluster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/searchforest/internal/corpus"
	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/keyword"
	"github.com/matsen/searchforest/internal/paper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectorEmbedder returns fixed vectors per text.
type vectorEmbedder map[string][]float32

func (v vectorEmbedder) Embed(ctx context.Context, text string) (embedding.Embedding, error) {
	vec, ok := v[text]
	if !ok {
		return embedding.Embedding{}, errors.New("unknown text")
	}
	return embedding.Embedding{Vector: vec}, nil
}

// Two text dims plus one graph dim.
func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Cluster{
		{ID: 7, PaperIDs: []string{"c"}, Centroid: []float32{0, 1, 0.5}},
		{ID: 2, PaperIDs: []string{"a", "b"}, Centroid: []float32{1, 0, 0.5}},
		{ID: 4, Size: 10, PaperIDs: []string{"b", "d"}, Centroid: []float32{1, 0, 0.9}},
	}, 1)
	require.NoError(t, err)
	return table
}

func TestNewTable(t *testing.T) {
	table := testTable(t)

	assert.Equal(t, 2, table.TextDims)
	assert.Equal(t, 1, table.GraphDims)
	ids := []int{}
	for _, c := range table.Clusters {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int{2, 4, 7}, ids)

	c, err := table.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size)
	c, _ = table.Get(4)
	assert.Equal(t, 10, c.Size)

	_, err = table.Get(3)
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		clusters []Cluster
		want     error
	}{
		{"empty", nil, ErrEmptyTable},
		{"no text part", []Cluster{{ID: 1, Centroid: []float32{1}}}, ErrCentroidWidth},
		{"ragged", []Cluster{{ID: 1, Centroid: []float32{1, 0, 0}}, {ID: 2, Centroid: []float32{1, 0}}}, ErrCentroidWidth},
		{"duplicate", []Cluster{{ID: 1, Centroid: []float32{1, 0}}, {ID: 1, Centroid: []float32{0, 1}}}, ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.clusters, 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestImportSaveLoad(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "clusters.jsonl")
	lines := `{"id":1,"keywords":["phylogenetics"],"paper_ids":["a","b"],"centroid":[0.6,0.8,0]}
{"id":0,"paper_ids":["c"],"centroid":[1,0,0]}
`
	require.NoError(t, os.WriteFile(src, []byte(lines), 0644))

	table, err := Import(src, 1)
	require.NoError(t, err)
	require.Len(t, table.Clusters, 2)
	assert.Equal(t, 0, table.Clusters[0].ID)

	_, err = LoadTable(root)
	assert.ErrorIs(t, err, ErrTableNotFound)

	require.NoError(t, table.Save(root))
	loaded, err := LoadTable(root)
	require.NoError(t, err)
	assert.Equal(t, table, loaded)
}

func TestTable_AssignmentAndKeywords(t *testing.T) {
	table := testTable(t)

	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 7, "d": 4}, table.Assignment())

	require.NoError(t, table.SetKeywords(7, []string{"x", "y"}))
	c, _ := table.Get(7)
	assert.Equal(t, []string{"x", "y"}, c.Keywords)
	assert.ErrorIs(t, table.SetKeywords(99, nil), ErrClusterNotFound)
}

func TestTextCentroid(t *testing.T) {
	table, err := NewTable([]Cluster{{ID: 1, Centroid: []float32{3, 4, 100}}}, 1)
	require.NoError(t, err)

	got := table.TextCentroid(table.Clusters[0])
	require.Len(t, got, 2)
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)
}

func TestRouter_Route(t *testing.T) {
	table := testTable(t)
	emb := vectorEmbedder{"trees": {2, 0}, "other": {0, 5}, "short": {1}}
	r := NewRouter(table, emb)
	ctx := context.Background()

	hits, err := r.Route(ctx, "trees", 5)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	// Query is [1, 0, 0]; clusters 2 and 4 tie on the text part.
	assert.Equal(t, 2, hits[0].ClusterID)
	assert.Equal(t, 4, hits[1].ClusterID)
	assert.Equal(t, 7, hits[2].ClusterID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.InDelta(t, 0.0, hits[2].Similarity, 1e-6)

	hits, err = r.Route(ctx, "other", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 7, hits[0].ClusterID)

	_, err = r.Route(ctx, "trees", 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)

	_, err = r.Route(ctx, "short", 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = r.Route(ctx, "unknown", 1)
	assert.Error(t, err)
}

func TestRouter_QueryVector(t *testing.T) {
	r := NewRouter(testTable(t), nil)
	q := r.QueryVector(embedding.Embedding{Vector: []float32{3, 4}})
	require.Len(t, q, 3)
	assert.InDelta(t, 0.6, q[0], 1e-6)
	assert.InDelta(t, 0.8, q[1], 1e-6)
	assert.Equal(t, 0.0, q[2])
}

func TestDeriveKeywords(t *testing.T) {
	ctx := context.Background()
	provider := embedding.NewHashProvider(64)
	text, err := provider.Embed(ctx, "phylogenetic inference")
	require.NoError(t, err)

	centroid := append(append([]float32{}, text.Vector...), 0, 0)
	table, err := NewTable([]Cluster{{ID: 1, PaperIDs: []string{"a", "b", "z"}, Centroid: centroid}}, 2)
	require.NoError(t, err)

	papers := corpus.New([]paper.Paper{
		{ID: "a", Abstract: "bayesian phylogenetic inference with mcmc"},
		{ID: "b", Abstract: "fast phylogenetic inference on bayesian trees"},
	})

	cands, err := table.DeriveKeywords(ctx, 1, papers, keyword.NewSemantic(provider), DefaultKeywordCount)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, "phylogenetic inference", cands[0].Term)
	assert.LessOrEqual(t, len(cands), DefaultKeywordCount)

	_, err = table.DeriveKeywords(ctx, 5, papers, keyword.NewSemantic(provider), 3)
	assert.ErrorIs(t, err, ErrClusterNotFound)
}
