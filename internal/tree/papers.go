package tree

import (
	"context"
	"sort"

	"github.com/matsen/searchforest/internal/logger"
)

// finalizePapers turns the accumulated associations into the keyword to
// papers index: one entry per paper keeping its best score, backfilled from
// the searcher while short of limit, truncated to limit, and ordered by score
// descending with paper id breaking ties. Backfill similarities are ranked
// together with extraction scores.
func finalizePapers(ctx context.Context, acc *accumulator, searcher Searcher, limit int) (KeywordPapers, error) {
	out := make(KeywordPapers, len(acc.paperOrder))
	for _, kw := range acc.keywords() {
		list := dedupePapers(acc.papers[kw])

		if len(list) < limit && searcher != nil {
			hits, err := searcher.Search(ctx, kw, limit)
			if err != nil {
				return nil, &StepError{Step: StepBackfill, Err: err}
			}
			present := make(map[string]bool, len(list))
			for _, ps := range list {
				present[ps.PaperID] = true
			}
			added := 0
			for _, h := range hits {
				if len(list) >= limit {
					break
				}
				if present[h.PaperID] {
					continue
				}
				present[h.PaperID] = true
				list = append(list, PaperScore{PaperID: h.PaperID, Score: h.Similarity})
				added++
			}
			if added > 0 {
				list = dedupePapers(list)
				logger.Debug("backfilled keyword papers", "keyword", kw, "added", added)
			}
		}

		if len(list) > limit {
			list = list[:limit]
		}
		out[kw] = list
	}
	return out, nil
}

// dedupePapers sorts by score descending (paper id ascending on ties) and
// keeps the first, highest scoring, entry of each paper.
func dedupePapers(list []PaperScore) []PaperScore {
	sorted := make([]PaperScore, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].PaperID < sorted[j].PaperID
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]PaperScore, 0, len(sorted))
	for _, ps := range sorted {
		if seen[ps.PaperID] {
			continue
		}
		seen[ps.PaperID] = true
		out = append(out, ps)
	}
	return out
}
