package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTFIDF_QuantumAndBlank(t *testing.T) {
	texts := []string{"quantum computing applications", ""}
	res := NewTFIDF().Extract(texts, 5)

	require.Len(t, res, 2)
	assert.Empty(t, res.For(""))

	got := res.For("quantum computing applications")
	require.NotEmpty(t, got)
	allowed := map[string]bool{
		"quantum":                true,
		"computing":              true,
		"applications":           true,
		"quantum computing":      true,
		"computing applications": true,
	}
	for _, c := range got {
		assert.True(t, allowed[c.Term], "unexpected term %q", c.Term)
		assert.Greater(t, c.Score, 0.0)
	}
	assert.Len(t, got, 5)
}

func TestTFIDF_OrderingAndTopN(t *testing.T) {
	texts := []string{
		"graph neural networks for citation graph analysis",
		"protein structure prediction with deep networks",
		"citation recommendation using graph embeddings",
	}
	res := NewTFIDF().Extract(texts, 3)

	for _, text := range texts {
		cands := res.For(text)
		assert.LessOrEqual(t, len(cands), 3)
		for i := 1; i < len(cands); i++ {
			prev, cur := cands[i-1], cands[i]
			ordered := prev.Score > cur.Score || (prev.Score == cur.Score && prev.Term < cur.Term)
			assert.True(t, ordered, "not ordered: %v then %v", prev, cur)
		}
	}
	// "graph" is repeated in the first text, so it outranks its other unigrams.
	assert.Equal(t, "graph", res.For(texts[0])[0].Term)
}

func TestTFIDF_StopWordsOnly(t *testing.T) {
	res := NewTFIDF().Extract([]string{"the and of", "is it"}, 5)
	assert.Empty(t, res.For("the and of"))
	assert.Empty(t, res.For("is it"))
}

func TestTFIDF_EmptyBatch(t *testing.T) {
	assert.Empty(t, NewTFIDF().Extract(nil, 5))
	res := NewTFIDF().Extract([]string{"   ", "\n"}, 5)
	assert.Empty(t, res.For("   "))
	assert.Empty(t, res.For("\n"))
}

func TestTFIDF_MaxDFPrunesUbiquitousTerms(t *testing.T) {
	texts := []string{
		"sparse attention transformer",
		"sparse retrieval index",
		"sparse coding dictionary",
	}
	res := NewTFIDF(WithUnigramsOnly()).Extract(texts, 10)
	for _, text := range texts {
		for _, c := range res.For(text) {
			assert.NotEqual(t, "sparse", c.Term)
		}
	}
	assert.Len(t, res.For(texts[0]), 2)
}

func TestTFIDF_NonPositiveTopN(t *testing.T) {
	res := NewTFIDF().Extract([]string{"quantum computing"}, 0)
	assert.Empty(t, res.For("quantum computing"))
}

func TestTFIDF_Deterministic(t *testing.T) {
	texts := []string{
		"keyword trees over citation neighborhoods",
		"neighborhood sampling for graph learning",
	}
	first := NewTFIDF().Extract(texts, 4)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, NewTFIDF().Extract(texts, 4))
	}
}

func TestTFIDF_DuplicateTexts(t *testing.T) {
	res := NewTFIDF().Extract([]string{"bayesian phylogenetics", "bayesian phylogenetics", "tree topology moves"}, 3)
	assert.Len(t, res, 2)
	assert.NotEmpty(t, res.For("bayesian phylogenetics"))
}

func TestWordTokens(t *testing.T) {
	got := wordTokens("Self-Attention in 2019: a GPT-2 study, x y")
	assert.Equal(t, []string{"self", "attention", "in", "gpt", "study"}, got)
}

func TestResult_Lists(t *testing.T) {
	texts := []string{"quantum computing applications", "", "quantum computing applications"}
	lists := NewTFIDF().Extract(texts, 2).Lists(append(texts, "never extracted"))

	require.Len(t, lists, 4)
	assert.Len(t, lists[0], 2)
	assert.Equal(t, lists[0], lists[2])
	assert.NotNil(t, lists[1])
	assert.Empty(t, lists[1])
	assert.Empty(t, lists[3])
}
