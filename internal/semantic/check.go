package semantic

import (
	"fmt"
	"sort"

	"github.com/matsen/searchforest/internal/paper"
)

// CheckResult describes how well an index covers the current corpus.
type CheckResult struct {
	Eligible int      `json:"eligible"`
	Indexed  int      `json:"indexed"`
	Missing  []string `json:"missing,omitempty"`
	Stale    []string `json:"stale,omitempty"`
	Orphaned []string `json:"orphaned,omitempty"`
}

// Fresh reports whether the index needs no rebuild.
func (r CheckResult) Fresh() bool {
	return len(r.Missing) == 0 && len(r.Stale) == 0 && len(r.Orphaned) == 0
}

// Check compares idx against papers. A paper is stale when its abstract
// hash no longer matches the recorded metadata; orphans are indexed ids
// that are no longer eligible. store may be nil, which skips the stale check.
func Check(idx *Index, papers []paper.Paper, store MetadataStore) (CheckResult, error) {
	res := CheckResult{Indexed: len(idx.Embeddings)}
	eligible := make(map[string]bool)

	for _, p := range papers {
		if !Eligible(p) {
			continue
		}
		eligible[p.ID] = true
		res.Eligible++

		if !idx.HasPaper(p.ID) {
			res.Missing = append(res.Missing, p.ID)
			continue
		}
		if store == nil {
			continue
		}
		meta, err := store.GetEmbeddingMetadata(p.ID)
		if err != nil {
			return res, fmt.Errorf("reading embedding metadata for %s: %w", p.ID, err)
		}
		if meta == nil || meta.AbstractHash != HashAbstract(p.Abstract) || meta.ModelName != idx.ModelName {
			res.Stale = append(res.Stale, p.ID)
		}
	}

	for id := range idx.Embeddings {
		if !eligible[id] {
			res.Orphaned = append(res.Orphaned, id)
		}
	}
	sort.Strings(res.Orphaned)
	return res, nil
}
