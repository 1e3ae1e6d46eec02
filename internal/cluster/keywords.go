package cluster

import (
	"context"
	"fmt"

	"github.com/matsen/searchforest/internal/keyword"
)

// DefaultKeywordCount is how many display keywords a cluster gets.
const DefaultKeywordCount = 8

// AbstractSource returns the non-blank abstracts of papers.
type AbstractSource interface {
	Abstracts(ids []string) []string
}

// DeriveKeywords ranks recurring n-grams of a cluster's member abstracts
// against the text part of its centroid.
func (t *Table) DeriveKeywords(ctx context.Context, id int, papers AbstractSource, extractor *keyword.Semantic, topN int) ([]keyword.Candidate, error) {
	c, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	cands, err := extractor.Extract(ctx, papers.Abstracts(c.PaperIDs), t.TextCentroid(c), topN)
	if err != nil {
		return nil, fmt.Errorf("deriving keywords for cluster %d: %w", id, err)
	}
	return cands, nil
}
