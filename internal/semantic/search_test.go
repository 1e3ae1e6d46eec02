package semantic

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matsen/searchforest/internal/embedding"
)

func testIndex() *Index {
	idx := NewIndex("test-model", 3)
	idx.AddEmbedding("paper1", []float32{1, 0, 0})
	idx.AddEmbedding("paper2", []float32{0.9, 0.1, 0})
	idx.AddEmbedding("paper3", []float32{0, 1, 0})
	idx.AddEmbedding("paper4", []float32{0, 0, 1})
	return idx
}

func TestSearch(t *testing.T) {
	idx := testIndex()

	t.Run("finds similar papers", func(t *testing.T) {
		results, err := idx.Search([]float32{1, 0, 0}, 10, 0.0)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 4 {
			t.Fatalf("expected 4 results, got %d", len(results))
		}
		if results[0].PaperID != "paper1" {
			t.Errorf("expected paper1 as top result, got %s", results[0].PaperID)
		}
		if math.Abs(results[0].Similarity-1.0) > 1e-6 {
			t.Errorf("expected similarity 1.0 for paper1, got %v", results[0].Similarity)
		}
		if results[1].PaperID != "paper2" {
			t.Errorf("expected paper2 second, got %s", results[1].PaperID)
		}
		// paper3 and paper4 tie at 0; id order breaks the tie.
		if results[2].PaperID != "paper3" || results[3].PaperID != "paper4" {
			t.Errorf("tie order = %s, %s", results[2].PaperID, results[3].PaperID)
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		results, _ := idx.Search([]float32{1, 0, 0}, 2, 0.0)
		if len(results) != 2 {
			t.Errorf("expected 2 results, got %d", len(results))
		}
	})

	t.Run("respects threshold", func(t *testing.T) {
		results, _ := idx.Search([]float32{1, 0, 0}, 10, 0.5)
		if len(results) != 2 {
			t.Errorf("expected 2 results above 0.5, got %d", len(results))
		}
	})

	t.Run("rejects wrong dimensions", func(t *testing.T) {
		_, err := idx.Search([]float32{1, 0}, 10, 0)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})
}

func TestFindSimilar(t *testing.T) {
	idx := testIndex()

	results, err := idx.FindSimilar("paper1", 10)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.PaperID == "paper1" {
			t.Error("source paper should be excluded")
		}
	}
	if results[0].PaperID != "paper2" {
		t.Errorf("expected paper2 most similar, got %s", results[0].PaperID)
	}

	if _, err := idx.FindSimilar("missing", 10); err != ErrPaperNotIndexed {
		t.Errorf("expected ErrPaperNotIndexed, got %v", err)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) (embedding.Embedding, error) {
	return embedding.Embedding{}, errors.New("model offline")
}

func TestTextSearcher(t *testing.T) {
	provider := embedding.NewHashProvider(64)
	idx := NewIndex(provider.ModelName(), provider.Dimensions())
	ctx := context.Background()
	for id, text := range map[string]string{
		"gnn":     "graph neural networks on citation graphs",
		"protein": "protein folding with deep learning",
	} {
		emb, _ := provider.Embed(ctx, text)
		idx.AddEmbedding(id, emb.Vector)
	}

	results, err := NewTextSearcher(idx, provider).Search(ctx, "citation graphs", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].PaperID != "gnn" {
		t.Errorf("Search = %+v, want gnn first", results)
	}

	_, err = NewTextSearcher(idx, failingEmbedder{}).Search(ctx, "x", 1)
	if err == nil {
		t.Error("expected embedder error")
	}
}
