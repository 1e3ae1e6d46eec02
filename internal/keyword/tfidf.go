package keyword

import (
	"math"
	"sort"
)

// Default TF-IDF fit parameters.
const (
	DefaultMaxDF = 0.8
	DefaultMinDF = 1
)

// TFIDF extracts per-document keywords with a vocabulary fitted on the
// batch passed to Extract. It holds no state between calls and is safe for
// concurrent use.
type TFIDF struct {
	stopWords map[string]bool
	maxDF     float64
	minDF     int
	bigrams   bool
}

// Option configures a TFIDF extractor.
type Option func(*TFIDF)

// WithMaxDF drops terms whose document frequency ratio exceeds maxDF. It is
// only applied when the batch has more than one non-blank document.
func WithMaxDF(maxDF float64) Option {
	return func(t *TFIDF) {
		t.maxDF = maxDF
	}
}

// WithMinDF drops terms appearing in fewer than minDF documents.
func WithMinDF(minDF int) Option {
	return func(t *TFIDF) {
		t.minDF = minDF
	}
}

// WithStopWords replaces the English stop-word list.
func WithStopWords(words []string) Option {
	return func(t *TFIDF) {
		t.stopWords = toSet(words...)
	}
}

// WithUnigramsOnly disables bigram terms.
func WithUnigramsOnly() Option {
	return func(t *TFIDF) {
		t.bigrams = false
	}
}

// NewTFIDF creates an extractor with English stop words, unigrams and
// bigrams, max_df 0.8 and min_df 1.
func NewTFIDF(opts ...Option) *TFIDF {
	t := &TFIDF{
		stopWords: englishStopWords,
		maxDF:     DefaultMaxDF,
		minDF:     DefaultMinDF,
		bigrams:   true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Extract fits a vocabulary on texts and returns, for every input text, at
// most topN terms with positive weight, highest first.
//
// Blank texts get an empty list. If no term survives the fit every text gets
// an empty list; that is not an error.
func (t *TFIDF) Extract(texts []string, topN int) Result {
	result := make(Result, len(texts))
	for _, text := range texts {
		result[text] = []Candidate{}
	}
	if topN <= 0 {
		return result
	}

	// Fit on each distinct non-blank text once.
	var docs []string
	seen := make(map[string]bool)
	for _, text := range texts {
		if isBlank(text) || seen[text] {
			continue
		}
		seen[text] = true
		docs = append(docs, text)
	}
	if len(docs) == 0 {
		return result
	}

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts[i] = t.termCounts(doc)
		for term := range counts[i] {
			df[term]++
		}
	}

	vocab := t.prune(df, len(docs))
	if len(vocab) == 0 {
		return result
	}

	n := float64(len(docs))
	for i, doc := range docs {
		result[doc] = weigh(counts[i], vocab, df, n, topN)
	}
	return result
}

func (t *TFIDF) termCounts(doc string) map[string]int {
	var tokens []string
	for _, tok := range wordTokens(doc) {
		if !t.stopWords[tok] {
			tokens = append(tokens, tok)
		}
	}

	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if t.bigrams && i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}
	return counts
}

func (t *TFIDF) prune(df map[string]int, nDocs int) map[string]bool {
	maxCount := nDocs
	if nDocs > 1 {
		maxCount = int(math.Floor(t.maxDF * float64(nDocs)))
	}
	vocab := make(map[string]bool, len(df))
	for term, c := range df {
		if c >= t.minDF && c <= maxCount {
			vocab[term] = true
		}
	}
	return vocab
}

// weigh applies smoothed idf and L2 row normalization, then ranks.
func weigh(counts map[string]int, vocab map[string]bool, df map[string]int, n float64, topN int) []Candidate {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		if vocab[term] {
			terms = append(terms, term)
		}
	}
	// Fixed summation order keeps the norm bit-identical across runs.
	sort.Strings(terms)

	weights := make([]float64, len(terms))
	var sq float64
	for i, term := range terms {
		idf := math.Log((1+n)/(1+float64(df[term]))) + 1
		weights[i] = float64(counts[term]) * idf
		sq += weights[i] * weights[i]
	}
	norm := math.Sqrt(sq)
	if norm == 0 {
		return []Candidate{}
	}

	cands := make([]Candidate, 0, len(terms))
	for i, term := range terms {
		if w := weights[i] / norm; w > 0 {
			cands = append(cands, Candidate{Term: term, Score: w})
		}
	}
	SortCandidates(cands)
	if len(cands) > topN {
		cands = cands[:topN]
	}
	return cands
}
