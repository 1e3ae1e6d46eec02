package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/searchforest/internal/citation"
	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/keyword"
	"github.com/matsen/searchforest/internal/logger"
	"github.com/matsen/searchforest/internal/selector"
	"github.com/matsen/searchforest/internal/vecmath"
)

// DefaultSimScale sharpens the per-depth softmax behind SimScaled.
const DefaultSimScale = 5.0

// Builder builds keyword trees over one corpus. It holds no per-build
// state and is safe for concurrent use when its collaborators are.
type Builder struct {
	corpus           Corpus
	embedder         Embedder
	searcher         Searcher
	tfidf            *keyword.TFIDF
	semantic         *keyword.Semantic
	selector         *selector.Selector
	simScale         float64
	semanticFallback bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithSearcher enables vector search backfill of short paper lists.
func WithSearcher(s Searcher) Option {
	return func(b *Builder) {
		b.searcher = s
	}
}

// WithSelector replaces the default MMR selector.
func WithSelector(s *selector.Selector) Option {
	return func(b *Builder) {
		b.selector = s
	}
}

// WithExtractor replaces the default TF-IDF extractor.
func WithExtractor(t *keyword.TFIDF) Option {
	return func(b *Builder) {
		b.tfidf = t
	}
}

// WithSimScale sets the softmax scale for SimScaled.
func WithSimScale(scale float64) Option {
	return func(b *Builder) {
		if scale > 0 {
			b.simScale = scale
		}
	}
}

// WithSemanticFallback toggles n-gram extraction for hops where TF-IDF
// finds no vocabulary.
func WithSemanticFallback(enabled bool) Option {
	return func(b *Builder) {
		b.semanticFallback = enabled
	}
}

// NewBuilder creates a builder over corpus using embedder for every
// similarity it needs.
func NewBuilder(corpus Corpus, embedder Embedder, opts ...Option) *Builder {
	b := &Builder{
		corpus:           corpus,
		embedder:         embedder,
		tfidf:            keyword.NewTFIDF(),
		semantic:         keyword.NewSemantic(embedder),
		selector:         selector.New(nil),
		simScale:         DefaultSimScale,
		semanticFallback: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type hopDoc struct {
	id   string
	text string
}

// Build expands the tree for req. Sparse data never fails a build; only
// invalid requests and collaborator failures do.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	nb := citation.Collect(b.corpus.Graph(), req.RootPaperIDs)
	logger.Debug("collected neighborhood", "roots", len(req.RootPaperIDs), "hop1", len(nb.Hop1), "hop2", len(nb.Hop2))

	hop1 := b.documents(nb.Hop1)
	hop2 := b.documents(nb.Hop2)
	kw1, err := b.extract(ctx, hop1, req.K1)
	if err != nil {
		return nil, err
	}
	kw2, err := b.extract(ctx, hop2, req.K2)
	if err != nil {
		return nil, err
	}

	root := req.RootContext
	acc := newAccumulator()
	acc.addNode(root, 0)

	byPaper := make(map[string][]string, len(hop1))
	for i, d := range hop1 {
		for _, c := range kw1[i] {
			acc.addNode(c.Term, 1)
			acc.addEdge(root, c.Term)
			acc.addPaper(c.Term, d.id, c.Score)
			byPaper[d.id] = append(byPaper[d.id], c.Term)
		}
	}
	for i, d := range hop2 {
		citers := nb.Citers(d.id)
		for _, c := range kw2[i] {
			acc.addNode(c.Term, 2)
			acc.addEdge(root, c.Term)
			for _, citer := range citers {
				for _, parent := range byPaper[citer] {
					acc.addEdge(parent, c.Term)
				}
			}
			acc.addPaper(c.Term, d.id, c.Score)
		}
	}

	papers, err := finalizePapers(ctx, acc, b.searcher, req.PIDLimit)
	if err != nil {
		return nil, err
	}

	rootVec, vectors, err := b.embed(ctx, root, acc.keywords())
	if err != nil {
		return nil, err
	}
	sims := b.similarities(acc, rootVec, vectors)

	t := &assembly{
		builder: b,
		req:     req,
		acc:     acc,
		papers:  papers,
		rootVec: rootVec,
		vectors: vectors,
		sims:    sims,
	}
	nested, err := t.nest()
	if err != nil {
		return nil, err
	}

	return &Result{
		Root:          nested,
		Graph:         t.flat(),
		KeywordPapers: papers,
		Hop1:          nonNil(nb.Hop1),
		Hop2:          nonNil(nb.Hop2),
	}, nil
}

// documents returns the papers of ids that have metadata and a non-blank
// abstract.
func (b *Builder) documents(ids []string) []hopDoc {
	var docs []hopDoc
	for _, id := range ids {
		p, ok := b.corpus.Paper(id)
		if !ok || !p.HasAbstract() {
			continue
		}
		docs = append(docs, hopDoc{id: id, text: p.Abstract})
	}
	return docs
}

// extract returns up to k candidates per document, aligned with docs.
func (b *Builder) extract(ctx context.Context, docs []hopDoc, k int) ([][]keyword.Candidate, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.text
	}
	lists := b.tfidf.Extract(texts, k).Lists(texts)
	if !b.semanticFallback || len(docs) == 0 || !allEmpty(lists) {
		return lists, nil
	}

	logger.Debug("empty tf-idf vocabulary, falling back to n-gram keywords", "papers", len(docs))
	embs, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &StepError{Step: StepSemantic, Err: err}
	}
	if len(embs) != len(texts) {
		return nil, &StepError{Step: StepSemantic, Err: fmt.Errorf("%w: got %d, want %d", embedding.ErrBatchSize, len(embs), len(texts))}
	}
	lists, err = b.semantic.ExtractEach(ctx, texts, embedding.Vectors(embs), k)
	if err != nil {
		return nil, &StepError{Step: StepSemantic, Err: err}
	}
	return lists, nil
}

// embed embeds the root context and every keyword in one batch.
func (b *Builder) embed(ctx context.Context, root string, keywords []string) ([]float32, map[string][]float32, error) {
	texts := append([]string{root}, keywords...)
	embs, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, &StepError{Step: StepEmbed, Err: err}
	}
	if len(embs) != len(texts) {
		return nil, nil, &StepError{Step: StepEmbed, Err: fmt.Errorf("%w: got %d, want %d", embedding.ErrBatchSize, len(embs), len(texts))}
	}

	for i, e := range embs {
		if len(e.Vector) == 0 {
			return nil, nil, &StepError{Step: StepEmbed, Err: fmt.Errorf("%w: %q", selector.ErrEmptyVector, texts[i])}
		}
	}

	vectors := make(map[string][]float32, len(keywords))
	for i, kw := range keywords {
		vectors[kw] = embs[i+1].Vector
	}
	return embs[0].Vector, vectors, nil
}

type simPair struct {
	raw, scaled float64
}

// similarities computes each node's cosine to the root context and the
// softmax of those cosines within its depth. The root is 1 by definition.
func (b *Builder) similarities(acc *accumulator, rootVec []float32, vectors map[string][]float32) map[nodeKey]simPair {
	out := make(map[nodeKey]simPair, len(acc.nodeOrder))
	byDepth := make(map[int][]nodeKey)
	for _, k := range acc.nodeOrder {
		byDepth[k.depth] = append(byDepth[k.depth], k)
	}

	for depth, keys := range byDepth {
		raw := make([]float64, len(keys))
		for i, k := range keys {
			if depth == 0 {
				raw[i] = 1
				continue
			}
			raw[i] = vecmath.Cosine(vectors[k.id], rootVec)
		}
		scaled := vecmath.Softmax(raw, b.simScale)
		for i, k := range keys {
			out[k] = simPair{raw: raw[i], scaled: scaled[i]}
		}
	}
	return out
}

func allEmpty(lists [][]keyword.Candidate) bool {
	for _, l := range lists {
		if len(l) > 0 {
			return false
		}
	}
	return true
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func contextLabel(parts ...string) string {
	return strings.Join(parts, "-")
}
