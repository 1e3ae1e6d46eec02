package s2

import (
	"context"
	"errors"
	"fmt"

	"github.com/matsen/searchforest/internal/logger"
	"github.com/matsen/searchforest/internal/paper"
)

// Source is the part of Client a crawl needs.
type Source interface {
	GetPaper(ctx context.Context, id PaperIdentifier) (*Paper, error)
	GetReferences(ctx context.Context, id PaperIdentifier, limit int) ([]Paper, error)
}

// CrawlOptions bounds a crawl.
type CrawlOptions struct {
	// Hops is how many levels of references get their own references
	// fetched. 1 records the seeds' references as leaf papers.
	Hops int
	// RefLimit caps the references fetched per paper.
	RefLimit int
	// MaxPapers stops expanding once this many papers are known. 0 means no cap.
	MaxPapers int
}

// CrawlResult is what a crawl collected, seeds first.
type CrawlResult struct {
	Papers      []paper.Paper `json:"-"`
	Seeds       []string      `json:"seeds"`
	Fetched     int           `json:"fetched"`
	Unavailable []string      `json:"references_unavailable,omitempty"`
}

// Crawl fetches the seeds and walks their references breadth first.
// A seed that cannot be fetched fails the crawl. A deeper paper whose
// references cannot be fetched is kept without references.
func Crawl(ctx context.Context, src Source, seeds []PaperIdentifier, opts CrawlOptions) (*CrawlResult, error) {
	if opts.Hops < 1 {
		opts.Hops = 1
	}

	res := &CrawlResult{}
	byID := make(map[string]*paper.Paper)
	var order []string
	add := func(p Paper) bool {
		if _, ok := byID[p.PaperID]; ok {
			return false
		}
		pp := ToPaper(p, nil)
		byID[p.PaperID] = &pp
		order = append(order, p.PaperID)
		return true
	}
	full := func() bool {
		return opts.MaxPapers > 0 && len(order) >= opts.MaxPapers
	}

	var frontier []string
	for _, id := range seeds {
		p, err := src.GetPaper(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching seed: %w", err)
		}
		res.Fetched++
		if add(*p) {
			frontier = append(frontier, p.PaperID)
		}
		res.Seeds = append(res.Seeds, p.PaperID)
	}

	for hop := 0; hop < opts.Hops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			refs, err := src.GetReferences(ctx, PaperIdentifier{Type: "S2", Value: id}, opts.RefLimit)
			if err != nil {
				if hop == 0 || errors.Is(err, context.Canceled) {
					return nil, fmt.Errorf("fetching references: %w", err)
				}
				logger.Warn("skipping references", "paper", id, "err", err)
				res.Unavailable = append(res.Unavailable, id)
				continue
			}
			res.Fetched++
			ids := make([]string, 0, len(refs))
			for _, r := range refs {
				if r.PaperID == id {
					continue
				}
				ids = append(ids, r.PaperID)
				if _, known := byID[r.PaperID]; !known && !full() {
					add(r)
					next = append(next, r.PaperID)
				}
			}
			byID[id].References = ids
			logger.Debug("fetched references", "paper", id, "hop", hop+1, "count", len(ids))
		}
		frontier = next
	}

	res.Papers = make([]paper.Paper, 0, len(order))
	for _, id := range order {
		res.Papers = append(res.Papers, *byID[id])
	}
	return res, nil
}
