// Package selector scores keyword candidates against a query and a parent
// keyword and picks a diverse subset with maximal marginal relevance (MMR).
package selector

import (
	"context"
	"errors"
	"fmt"

	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/vecmath"
	"gonum.org/v1/gonum/mat"
)

// DefaultWeights are the composite score weights used unless overridden.
var DefaultWeights = Weights{Query: 0.4, Parent: 0.4, Frequency: 0.2}

// DefaultLambda is the MMR redundancy penalty.
const DefaultLambda = 0.6

// Selection errors.
var (
	ErrInvalidK = errors.New("k must be positive")
	// ErrEmptyVector is returned by Select when the embedder answers a
	// candidate with no vector.
	ErrEmptyVector = errors.New("embedder returned an empty vector")
)

// Weights are the coefficients of the composite score.
type Weights struct {
	Query     float64 `json:"query" yaml:"query" mapstructure:"query"`
	Parent    float64 `json:"parent" yaml:"parent" mapstructure:"parent"`
	Frequency float64 `json:"frequency" yaml:"frequency" mapstructure:"frequency"`
}

// Embedder is the slice of an embedding provider the selector needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error)
}

// Selector ranks candidates. It holds no per-call state and is safe for
// concurrent use.
type Selector struct {
	embedder Embedder
	weights  Weights
	lambda   float64
}

// Option configures a Selector.
type Option func(*Selector)

// WithWeights overrides the composite score weights.
func WithWeights(w Weights) Option {
	return func(s *Selector) {
		s.weights = w
	}
}

// WithLambda overrides the MMR redundancy penalty.
func WithLambda(lambda float64) Option {
	return func(s *Selector) {
		s.lambda = lambda
	}
}

// New creates a selector. The embedder is only used by Select; SelectVectors
// works without one.
func New(embedder Embedder, opts ...Option) *Selector {
	s := &Selector{embedder: embedder, weights: DefaultWeights, lambda: DefaultLambda}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request asks for K keywords out of Candidates.
type Request struct {
	Query      string
	Parent     string // defaults to Query
	Candidates []string
	Frequency  map[string]float64 // normalized frequency; missing means 0
	K          int
}

// Scored is a selected keyword in pick order.
type Scored struct {
	Term      string  `json:"keyword"`
	Score     float64 `json:"score"`      // composite score
	Marginal  float64 `json:"marginal"`   // adjusted score when picked
	QuerySim  float64 `json:"query_sim"`  // cosine to the query
	ParentSim float64 `json:"parent_sim"` // cosine to the parent
}

// Select embeds the query, parent, and candidates in one batch and runs
// SelectVectors. Every candidate must come back with a vector, so the result
// always holds min(K, distinct candidates) keywords.
func (s *Selector) Select(ctx context.Context, req Request) ([]Scored, error) {
	if req.K <= 0 {
		return nil, ErrInvalidK
	}
	cands := dedupe(req.Candidates)
	if len(cands) == 0 {
		return []Scored{}, nil
	}
	parent := req.Parent
	if parent == "" {
		parent = req.Query
	}

	texts := append([]string{req.Query, parent}, cands...)
	embs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding keyword candidates: %w", err)
	}
	if len(embs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", embedding.ErrBatchSize, len(embs), len(texts))
	}

	vectors := make(map[string][]float32, len(cands))
	for i, c := range cands {
		v := embs[i+2].Vector
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: candidate %q", ErrEmptyVector, c)
		}
		vectors[c] = v
	}
	return s.SelectVectors(VectorRequest{
		Query:      embs[0].Vector,
		Parent:     embs[1].Vector,
		Candidates: cands,
		Vectors:    vectors,
		Frequency:  req.Frequency,
		K:          req.K,
	})
}

// VectorRequest is Request with embeddings already computed.
type VectorRequest struct {
	Query      []float32
	Parent     []float32 // defaults to Query
	Candidates []string
	Vectors    map[string][]float32
	Frequency  map[string]float64
	K          int
}

// SelectVectors scores every candidate as
//
//	wQ*cos(c, query) + wP*cos(c, parent) + wF*freq(c)
//
// then picks greedily: the highest adjusted score wins, and every remaining
// candidate's adjusted score becomes composite - lambda*max cos(c, picked).
// Ties go to the lexically smaller keyword. Candidates without a vector are
// skipped.
func (s *Selector) SelectVectors(req VectorRequest) ([]Scored, error) {
	if req.K <= 0 {
		return nil, ErrInvalidK
	}
	parent := req.Parent
	if len(parent) == 0 {
		parent = req.Query
	}

	var pool []Scored
	var vecs [][]float32
	for _, c := range dedupe(req.Candidates) {
		v, ok := req.Vectors[c]
		if !ok || len(v) == 0 {
			continue
		}
		qs := vecmath.Clamp01(vecmath.Cosine(v, req.Query))
		ps := vecmath.Clamp01(vecmath.Cosine(v, parent))
		score := s.weights.Query*qs + s.weights.Parent*ps + s.weights.Frequency*req.Frequency[c]
		pool = append(pool, Scored{Term: c, Score: score, Marginal: score, QuerySim: qs, ParentSim: ps})
		vecs = append(vecs, v)
	}
	if len(pool) == 0 {
		return []Scored{}, nil
	}

	sim := similarityMatrix(vecs)
	picked := make([]bool, len(pool))
	maxSim := make([]float64, len(pool))
	k := min(req.K, len(pool))
	out := make([]Scored, 0, k)

	for len(out) < k {
		best := -1
		for i := range pool {
			if picked[i] {
				continue
			}
			if best < 0 || better(pool[i], pool[best]) {
				best = i
			}
		}
		picked[best] = true
		out = append(out, pool[best])

		for i := range pool {
			if picked[i] {
				continue
			}
			if c := sim.At(i, best); c > maxSim[i] {
				maxSim[i] = c
			}
			pool[i].Marginal = pool[i].Score - s.lambda*maxSim[i]
		}
	}
	return out, nil
}

func better(a, b Scored) bool {
	if a.Marginal != b.Marginal {
		return a.Marginal > b.Marginal
	}
	return a.Term < b.Term
}

// similarityMatrix returns the pairwise cosine matrix of vecs, clamped to
// [0, 1]. Rows of mismatched width count as dissimilar to everything.
func similarityMatrix(vecs [][]float32) *mat.Dense {
	n := len(vecs)
	dim := len(vecs[0])
	rows := mat.NewDense(n, dim, nil)
	valid := make([]bool, n)
	for i, v := range vecs {
		if len(v) != dim {
			continue
		}
		valid[i] = true
		rows.SetRow(i, vecmath.Normalize(vecmath.ToFloat64(v)))
	}

	var sim mat.Dense
	sim.Mul(rows, rows.T())
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !valid[i] || !valid[j] {
				sim.Set(i, j, 0)
				continue
			}
			sim.Set(i, j, vecmath.Clamp01(sim.At(i, j)))
		}
	}
	return &sim
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// Terms returns the keywords of a selection in pick order.
func Terms(sel []Scored) []string {
	out := make([]string, len(sel))
	for i, s := range sel {
		out[i] = s.Term
	}
	return out
}
