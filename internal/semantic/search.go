package semantic

import (
	"context"
	"fmt"
	"sort"

	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/vecmath"
)

// Search finds papers similar to a query embedding by cosine similarity.
// Results are sorted by similarity (highest first, paper id on ties) and
// filtered by threshold. A limit of zero or less returns every match.
func (idx *Index) Search(query []float32, limit int, threshold float64) ([]SearchResult, error) {
	if len(query) != idx.Dimensions {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), idx.Dimensions)
	}

	results := make([]SearchResult, 0, len(idx.Embeddings))
	for paperID, emb := range idx.Embeddings {
		sim := vecmath.Cosine(query, emb)
		if sim >= threshold {
			results = append(results, SearchResult{PaperID: paperID, Similarity: sim})
		}
	}
	return rank(results, limit), nil
}

// FindSimilar finds papers similar to a given paper by ID.
// The source paper is excluded from results.
func (idx *Index) FindSimilar(paperID string, limit int) ([]SearchResult, error) {
	source, exists := idx.Embeddings[paperID]
	if !exists {
		return nil, ErrPaperNotIndexed
	}

	results := make([]SearchResult, 0, len(idx.Embeddings))
	for id, emb := range idx.Embeddings {
		if id == paperID {
			continue
		}
		results = append(results, SearchResult{PaperID: id, Similarity: vecmath.Cosine(source, emb)})
	}
	return rank(results, limit), nil
}

// HasPaper checks if a paper is in the index.
func (idx *Index) HasPaper(paperID string) bool {
	_, exists := idx.Embeddings[paperID]
	return exists
}

// Vector returns the stored embedding of a paper.
func (idx *Index) Vector(paperID string) ([]float32, bool) {
	v, ok := idx.Embeddings[paperID]
	return v, ok
}

func rank(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].PaperID < results[j].PaperID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Embedder turns a single text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Embedding, error)
}

// TextSearcher answers free-text queries by embedding the text and
// searching the index.
type TextSearcher struct {
	index    *Index
	embedder Embedder
}

// NewTextSearcher pairs an index with the embedder that built it.
func NewTextSearcher(index *Index, embedder Embedder) *TextSearcher {
	return &TextSearcher{index: index, embedder: embedder}
}

// Search returns up to topK papers nearest to text.
func (s *TextSearcher) Search(ctx context.Context, text string, topK int) ([]SearchResult, error) {
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding search text: %w", err)
	}
	return s.index.Search(emb.Vector, topK, -1)
}
