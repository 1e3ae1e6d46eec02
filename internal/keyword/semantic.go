package keyword

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/vecmath"
)

// Semantic-mode limits.
const (
	DefaultMaxNGram      = 3
	DefaultMinFrequency  = 2
	DefaultMaxTermLength = 40
	DefaultScanLimit     = 40000
	DefaultMaxCandidates = 10000
)

// ErrMisaligned is returned when per-document inputs differ in length.
var ErrMisaligned = errors.New("references and documents differ in length")

// Embedder is the slice of an embedding provider the semantic mode needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error)
}

// Semantic ranks recurring n-grams by similarity to a reference vector.
type Semantic struct {
	embedder      Embedder
	maxN          int
	minFrequency  int
	maxLength     int
	scanLimit     int
	maxCandidates int
}

// SemanticOption configures a Semantic extractor.
type SemanticOption func(*Semantic)

// WithMaxNGram sets the longest n-gram considered.
func WithMaxNGram(n int) SemanticOption {
	return func(s *Semantic) {
		s.maxN = n
	}
}

// WithMinFrequency sets how often an n-gram must occur across the documents.
func WithMinFrequency(n int) SemanticOption {
	return func(s *Semantic) {
		s.minFrequency = n
	}
}

// WithScanLimit caps the number of n-gram occurrences counted.
func WithScanLimit(n int) SemanticOption {
	return func(s *Semantic) {
		s.scanLimit = n
	}
}

// NewSemantic creates a semantic extractor backed by embedder.
func NewSemantic(embedder Embedder, opts ...SemanticOption) *Semantic {
	s := &Semantic{
		embedder:      embedder,
		maxN:          DefaultMaxNGram,
		minFrequency:  DefaultMinFrequency,
		maxLength:     DefaultMaxTermLength,
		scanLimit:     DefaultScanLimit,
		maxCandidates: DefaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Candidates returns the n-grams of docs that pass the frequency and length
// filters, in first-seen order. N-grams made only of stop words are dropped.
func (s *Semantic) Candidates(docs []string) []string {
	counts := make(map[string]int)
	var order []string
	scanned := 0
	for _, doc := range docs {
		more := ngrams(doc, s.maxN, func(g string) bool {
			if scanned >= s.scanLimit {
				return false
			}
			scanned++
			if counts[g] == 0 {
				order = append(order, g)
			}
			counts[g]++
			return true
		})
		if !more {
			break
		}
	}

	var out []string
	for _, g := range order {
		if counts[g] < s.minFrequency || len(g) > s.maxLength || stopWordsOnly(g) {
			continue
		}
		out = append(out, g)
		if len(out) == s.maxCandidates {
			break
		}
	}
	return out
}

// Extract returns at most topN n-grams of docs ranked by cosine similarity to
// reference. Only positive similarities are kept. No surviving n-gram yields
// an empty list and no error; an embedding failure is returned.
func (s *Semantic) Extract(ctx context.Context, docs []string, reference []float32, topN int) ([]Candidate, error) {
	if topN <= 0 || len(reference) == 0 {
		return []Candidate{}, nil
	}
	terms, vecs, err := s.embedCandidates(ctx, docs)
	if err != nil {
		return nil, err
	}
	all := make([]int, len(terms))
	for i := range all {
		all[i] = i
	}
	return rank(terms, vecs, all, reference, topN), nil
}

// ExtractEach ranks each document's own n-grams against its own reference:
// references[i] belongs to docs[i]. Frequency filtering is over all of docs
// and the surviving n-grams are embedded a single time, but a document is
// only ever given n-grams that occur in its text. An empty reference gets an
// empty list.
func (s *Semantic) ExtractEach(ctx context.Context, docs []string, references [][]float32, topN int) ([][]Candidate, error) {
	if len(references) != len(docs) {
		return nil, fmt.Errorf("%w: %d references for %d documents", ErrMisaligned, len(references), len(docs))
	}
	out := make([][]Candidate, len(docs))
	for i := range out {
		out[i] = []Candidate{}
	}
	if topN <= 0 || len(docs) == 0 {
		return out, nil
	}
	terms, vecs, err := s.embedCandidates(ctx, docs)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return out, nil
	}
	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}

	for d, doc := range docs {
		if len(references[d]) == 0 {
			continue
		}
		var own []int
		seen := make(map[int]bool)
		ngrams(doc, s.maxN, func(g string) bool {
			if i, ok := index[g]; ok && !seen[i] {
				seen[i] = true
				own = append(own, i)
			}
			return true
		})
		out[d] = rank(terms, vecs, own, references[d], topN)
	}
	return out, nil
}

// embedCandidates embeds the candidates of docs in one batch.
func (s *Semantic) embedCandidates(ctx context.Context, docs []string) ([]string, [][]float32, error) {
	terms := s.Candidates(docs)
	if len(terms) == 0 {
		return nil, nil, nil
	}
	embs, err := s.embedder.EmbedBatch(ctx, terms)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding n-gram candidates: %w", err)
	}
	if len(embs) != len(terms) {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", embedding.ErrBatchSize, len(embs), len(terms))
	}
	return terms, embedding.Vectors(embs), nil
}

// rank scores terms[idx] against ref and keeps the topN positive ones.
func rank(terms []string, vecs [][]float32, idx []int, ref []float32, topN int) []Candidate {
	cands := make([]Candidate, 0, len(idx))
	for _, i := range idx {
		score := vecmath.Cosine(vecs[i], ref)
		if score <= 0 {
			continue
		}
		cands = append(cands, Candidate{Term: terms[i], Score: vecmath.Clamp01(score)})
	}
	SortCandidates(cands)
	if len(cands) > topN {
		cands = cands[:topN]
	}
	return cands
}

func stopWordsOnly(g string) bool {
	for _, w := range strings.Fields(g) {
		if !englishStopWords[w] {
			return false
		}
	}
	return true
}
