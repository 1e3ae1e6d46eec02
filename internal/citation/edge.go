// Package citation holds the directed citation graph of the corpus and the
// neighborhood walks over it.
package citation

import (
	"errors"
	"sort"
)

// Edge is one directed citation: Source cites Target.
type Edge struct {
	Source string `json:"source_id"`
	Target string `json:"target_id"`
}

// Validation errors.
var (
	ErrEmptySource = errors.New("source_id is required")
	ErrEmptyTarget = errors.New("target_id is required")
	ErrSelfEdge    = errors.New("source_id and target_id cannot be the same")
)

// Validate checks an edge before it is written to the citation store.
func (e Edge) Validate() error {
	if e.Source == "" {
		return ErrEmptySource
	}
	if e.Target == "" {
		return ErrEmptyTarget
	}
	if e.Source == e.Target {
		return ErrSelfEdge
	}
	return nil
}

// DanglingInfo describes a citation with an endpoint outside the corpus.
type DanglingInfo struct {
	Source string `json:"source_id"`
	Target string `json:"target_id"`
	Reason string `json:"reason"` // "missing_source", "missing_target", or "missing_both"
}

// DetectDangling splits edges into those whose endpoints are both known
// papers and those that point outside the corpus.
//
// Dangling citations are legal in the graph; this is a reporting aid for
// `sf check`, not a filter the builders rely on.
func DetectDangling(edges []Edge, known map[string]bool) (dangling []DanglingInfo, resolved []Edge) {
	for _, e := range edges {
		sourceOK := known[e.Source]
		targetOK := known[e.Target]
		if sourceOK && targetOK {
			resolved = append(resolved, e)
			continue
		}
		info := DanglingInfo{Source: e.Source, Target: e.Target}
		switch {
		case !sourceOK && !targetOK:
			info.Reason = "missing_both"
		case !sourceOK:
			info.Reason = "missing_source"
		default:
			info.Reason = "missing_target"
		}
		dangling = append(dangling, info)
	}
	return dangling, resolved
}

// FindDuplicates returns the edges recorded more than once with their counts,
// sorted by source then target.
func FindDuplicates(edges []Edge) []DuplicateInfo {
	counts := make(map[Edge]int)
	for _, e := range edges {
		counts[e]++
	}

	var dups []DuplicateInfo
	for e, n := range counts {
		if n > 1 {
			dups = append(dups, DuplicateInfo{Edge: e, Count: n})
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].Source != dups[j].Source {
			return dups[i].Source < dups[j].Source
		}
		return dups[i].Target < dups[j].Target
	})
	return dups
}

// DuplicateInfo is a repeated citation and how often it occurs.
type DuplicateInfo struct {
	Edge
	Count int `json:"count"`
}
