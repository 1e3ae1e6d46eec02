// Package keyword extracts ranked keyword candidates from paper abstracts.
//
// Two modes are provided. TFIDF fits a vocabulary on the batch it is given
// and ranks each document's unigrams and bigrams by TF-IDF weight. Semantic
// counts recurring n-grams across a set of documents and ranks them by
// embedding similarity to a reference vector.
package keyword

import (
	"sort"
	"strings"
)

// Candidate is a keyword and its non-negative score.
type Candidate struct {
	Term  string  `json:"keyword"`
	Score float64 `json:"score"`
}

// Result maps each distinct input text to its ranked candidates.
//
// Texts that are equal share one entry, so callers holding a paper id
// should look up by the text they passed in.
type Result map[string][]Candidate

// For returns the candidates extracted for text, or nil.
func (r Result) For(text string) []Candidate {
	return r[text]
}

// Lists returns the candidates for each text in the given order. Texts with
// no entry get an empty list.
func (r Result) Lists(texts []string) [][]Candidate {
	out := make([][]Candidate, len(texts))
	for i, t := range texts {
		out[i] = r[t]
		if out[i] == nil {
			out[i] = []Candidate{}
		}
	}
	return out
}

// Terms flattens a candidate list to its keyword strings.
func Terms(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Term
	}
	return out
}

// SortCandidates orders by score descending, breaking ties lexically so that
// the order is total.
func SortCandidates(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Term < cs[j].Term
	})
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
