package tree

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/matsen/searchforest/internal/corpus"
	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/paper"
	"github.com/matsen/searchforest/internal/selector"
	"github.com/matsen/searchforest/internal/semantic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamondCorpus: R cites A and B, both cite C. E has no references.
func diamondCorpus() *corpus.Corpus {
	return corpus.New([]paper.Paper{
		{ID: "R", Title: "Root paper", Abstract: "surveying citation analysis", References: []string{"A", "B", "ghost"}},
		{ID: "A", Title: "Graph networks", Abstract: "graph neural networks for citation graph analysis", References: []string{"C"}},
		{ID: "B", Title: "Citation intent", Abstract: "citation intent classification using transformers", References: []string{"C", "R"}},
		{ID: "C", Title: "Message passing", Abstract: "message passing networks learn molecular representations", References: []string{"A"}},
		{ID: "E", Title: "Lonely", Abstract: "an isolated paper about protein folding"},
	})
}

func diamondRequest() Request {
	return Request{RootContext: "citation analysis", RootPaperIDs: []string{"R"}, K1: 3, K2: 3, PIDLimit: 5}
}

// stubSearcher answers every query with the same hits, ignoring topK so
// the builder's own cap is exercised.
type stubSearcher struct {
	hits  []semantic.SearchResult
	err   error
	calls int
}

func (s *stubSearcher) Search(ctx context.Context, text string, topK int) ([]semantic.SearchResult, error) {
	s.calls++
	return s.hits, s.err
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error) {
	return nil, f.err
}

// blankEmbedder answers every text with an empty vector.
type blankEmbedder struct{}

func (blankEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error) {
	return make([]embedding.Embedding, len(texts)), nil
}

func newBuilder(opts ...Option) *Builder {
	return NewBuilder(diamondCorpus(), embedding.NewHashProvider(128), opts...)
}

func TestRequest_Validate(t *testing.T) {
	valid := diamondRequest()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"no roots", func(r *Request) { r.RootPaperIDs = nil }},
		{"zero k1", func(r *Request) { r.K1 = 0 }},
		{"negative k2", func(r *Request) { r.K2 = -1 }},
		{"zero pid limit", func(r *Request) { r.PIDLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := diamondRequest()
			tt.mutate(&req)
			_, err := newBuilder().Build(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestBuild_DiamondTopology(t *testing.T) {
	res, err := newBuilder().Build(context.Background(), diamondRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "ghost"}, res.Hop1)
	assert.Equal(t, []string{"C"}, res.Hop2)

	depth2 := nodesAt(res.Graph, 2)
	require.NotEmpty(t, depth2)

	for _, kw2 := range depth2 {
		var fromA, fromB bool
		for _, l := range res.Graph.Links {
			if l.Target != kw2 || l.Source == res.Root.ID {
				continue
			}
			ids := res.KeywordPapers.IDs(l.Source)
			fromA = fromA || contains(ids, "A")
			fromB = fromB || contains(ids, "B")
		}
		assert.True(t, fromA, "%q has no parent keyword from A", kw2)
		assert.True(t, fromB, "%q has no parent keyword from B", kw2)
		assert.Contains(t, res.KeywordPapers.IDs(kw2), "C")
	}
}

func TestBuild_Idempotent(t *testing.T) {
	searcher := &stubSearcher{hits: []semantic.SearchResult{{PaperID: "E", Similarity: 0.3}}}
	b := newBuilder(WithSearcher(searcher))

	first, err := b.Build(context.Background(), diamondRequest())
	require.NoError(t, err)
	second, err := b.Build(context.Background(), diamondRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_NoReferences(t *testing.T) {
	for _, root := range []string{"E", "not-in-corpus"} {
		t.Run(root, func(t *testing.T) {
			req := diamondRequest()
			req.RootPaperIDs = []string{root}
			res, err := newBuilder().Build(context.Background(), req)
			require.NoError(t, err)

			assert.Empty(t, res.Hop1)
			assert.Empty(t, res.Hop2)
			assert.Empty(t, res.Root.Children)
			assert.Empty(t, res.KeywordPapers)
			require.Len(t, res.Graph.Nodes, 1)
			assert.Equal(t, "citation analysis", res.Graph.Nodes[0].ID)
		})
	}
}

func TestBuild_PIDLimitAndDedupe(t *testing.T) {
	searcher := &stubSearcher{hits: []semantic.SearchResult{
		{PaperID: "A", Similarity: 0.9},
		{PaperID: "A", Similarity: 0.8},
		{PaperID: "C", Similarity: 0.7},
		{PaperID: "X", Similarity: 0.6},
		{PaperID: "Y", Similarity: 0.5},
	}}
	req := diamondRequest()
	req.PIDLimit = 3

	res, err := newBuilder(WithSearcher(searcher)).Build(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.KeywordPapers)
	assert.Positive(t, searcher.calls)

	for kw, list := range res.KeywordPapers {
		assert.LessOrEqual(t, len(list), 3, kw)
		seen := map[string]bool{}
		for _, ps := range list {
			assert.False(t, seen[ps.PaperID], "duplicate %s under %q", ps.PaperID, kw)
			seen[ps.PaperID] = true
		}
		assert.Len(t, list, 3, "%q should be backfilled to the limit", kw)
		assert.True(t, sort.SliceIsSorted(list, func(i, j int) bool {
			return list[i].Score > list[j].Score
		}), "%q papers not score-descending: %v", kw, list)
	}

	res.Root.Walk(func(n *Node) {
		assert.LessOrEqual(t, len(n.Papers), 3)
	})
}

func TestBuild_NestedBounds(t *testing.T) {
	req := diamondRequest()
	req.K1, req.K2 = 2, 1
	res, err := newBuilder().Build(context.Background(), req)
	require.NoError(t, err)

	root := res.Root
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, 1.0, root.Value)
	assert.LessOrEqual(t, len(root.Children), 2)
	require.NotEmpty(t, root.Children)

	links := map[Link]bool{}
	for _, l := range res.Graph.Links {
		links[l] = true
	}
	for _, c := range root.Children {
		assert.Equal(t, 1, c.Depth)
		assert.Equal(t, "citation analysis-"+c.ID, c.Context)
		assert.NotEmpty(t, c.Example)
		assert.GreaterOrEqual(t, c.Value, 0.0)
		assert.LessOrEqual(t, c.Value, 1.0)
		assert.LessOrEqual(t, len(c.Children), 1)
		for _, g := range c.Children {
			assert.Equal(t, 2, g.Depth)
			assert.True(t, links[Link{Source: c.ID, Target: g.ID}], "%s -> %s is not a topological edge", c.ID, g.ID)
			assert.Empty(t, g.Children)
		}
	}

	// SimScaled is a distribution within each depth.
	sums := map[int]float64{}
	for _, n := range res.Graph.Nodes {
		sums[n.Depth] += n.SimScaled
	}
	for depth, s := range sums {
		assert.InDelta(t, 1.0, s, 1e-9, "depth %d", depth)
	}
}

func TestBuild_FlatGraphUnique(t *testing.T) {
	res, err := newBuilder().Build(context.Background(), diamondRequest())
	require.NoError(t, err)

	nodes := map[nodeKey]bool{}
	for _, n := range res.Graph.Nodes {
		k := nodeKey{n.ID, n.Depth}
		assert.False(t, nodes[k], "duplicate node %v", k)
		nodes[k] = true
	}
	links := map[Link]bool{}
	for _, l := range res.Graph.Links {
		assert.False(t, links[l], "duplicate link %v", l)
		assert.NotEqual(t, l.Source, l.Target)
		links[l] = true
	}
}

func TestBuild_EmbedFailure(t *testing.T) {
	cause := errors.New("encoder unavailable")
	b := NewBuilder(diamondCorpus(), failingEmbedder{err: cause})

	_, err := b.Build(context.Background(), diamondRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepEmbed, se.Step)
	assert.False(t, IsBackfillError(err))
}

func TestBuild_EmptyKeywordVector(t *testing.T) {
	_, err := NewBuilder(diamondCorpus(), blankEmbedder{}).Build(context.Background(), diamondRequest())
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepEmbed, se.Step)
	assert.ErrorIs(t, err, selector.ErrEmptyVector)
}

func TestBuild_BackfillFailure(t *testing.T) {
	cause := errors.New("index unreachable")
	b := newBuilder(WithSearcher(&stubSearcher{err: cause}))

	_, err := b.Build(context.Background(), diamondRequest())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsBackfillError(err))
}

func TestBuild_SemanticFallback(t *testing.T) {
	// Both abstracts share every content word, so max_df empties the
	// TF-IDF vocabulary and the n-gram fallback takes over.
	c := corpus.New([]paper.Paper{
		{ID: "R", References: []string{"A", "B"}},
		{ID: "A", Title: "A", Abstract: "the the kinase signaling"},
		{ID: "B", Title: "B", Abstract: "Kinase Signaling"},
	})
	req := Request{RootContext: "root", RootPaperIDs: []string{"R"}, K1: 5, K2: 2, PIDLimit: 5}
	provider := embedding.NewHashProvider(256)

	res, err := NewBuilder(c, provider).Build(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, nodesAt(res.Graph, 1))
	assert.NotContains(t, nodesAt(res.Graph, 1), "the")

	for kw, papers := range res.KeywordPapers {
		for _, ps := range papers {
			p, ok := c.Paper(ps.PaperID)
			require.True(t, ok)
			assert.Contains(t, strings.ToLower(p.Abstract), kw, "paper %s listed under %q", ps.PaperID, kw)
			assert.Greater(t, ps.Score, 0.0)
		}
	}

	res, err = NewBuilder(c, provider, WithSemanticFallback(false)).Build(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, nodesAt(res.Graph, 1))
}

func TestBuild_SemanticFallbackFailure(t *testing.T) {
	c := corpus.New([]paper.Paper{
		{ID: "R", References: []string{"A"}},
		{ID: "A", Abstract: "it is what it is"},
	})
	req := Request{RootContext: "root", RootPaperIDs: []string{"R"}, K1: 2, K2: 2, PIDLimit: 2}

	_, err := NewBuilder(c, failingEmbedder{err: errors.New("down")}).Build(context.Background(), req)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepSemantic, se.Step)
}

func TestDedupePapers(t *testing.T) {
	got := dedupePapers([]PaperScore{
		{PaperID: "p1", Score: 0.2},
		{PaperID: "p3", Score: 0.5},
		{PaperID: "p1", Score: 0.9},
		{PaperID: "p2", Score: 0.5},
	})
	assert.Equal(t, []PaperScore{
		{PaperID: "p1", Score: 0.9},
		{PaperID: "p2", Score: 0.5},
		{PaperID: "p3", Score: 0.5},
	}, got)
}

func TestSimilarities_Softmax(t *testing.T) {
	acc := newAccumulator()
	acc.addNode("root", 0)
	acc.addNode("a", 1)
	acc.addNode("b", 1)
	vectors := map[string][]float32{"a": {1, 0}, "b": {0, 1}}

	sims := (&Builder{simScale: 5}).similarities(acc, []float32{1, 0}, vectors)

	assert.InDelta(t, 1.0, sims[nodeKey{"a", 1}].raw, 1e-9)
	assert.InDelta(t, 0.0, sims[nodeKey{"b", 1}].raw, 1e-9)
	want := 1 / (1 + math.Exp(-5))
	assert.InDelta(t, want, sims[nodeKey{"a", 1}].scaled, 1e-9)
	assert.InDelta(t, 1.0, sims[nodeKey{"root", 0}].scaled, 1e-9)
}

func nodesAt(g Graph, depth int) []string {
	var out []string
	for _, n := range g.Nodes {
		if n.Depth == depth {
			out = append(out, n.ID)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
