package semantic

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/paper"
	"github.com/matsen/searchforest/internal/storage"
)

// DefaultBatchSize is how many abstracts are embedded per EmbedBatch call.
const DefaultBatchSize = 32

// ProgressReporter receives progress updates during index building.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// MetadataStore records which abstract each embedding was computed from.
type MetadataStore interface {
	ClearEmbeddingMetadata() error
	SaveEmbeddingMetadata(meta storage.EmbeddingMetadata) error
	GetEmbeddingMetadata(paperID string) (*storage.EmbeddingMetadata, error)
}

// Builder constructs an index from paper abstracts.
type Builder struct {
	provider  embedding.Provider
	store     MetadataStore
	progress  ProgressReporter
	batchSize int
}

// NewBuilder creates a new index builder. store may be nil.
func NewBuilder(provider embedding.Provider, store MetadataStore) *Builder {
	return &Builder{
		provider:  provider,
		store:     store,
		batchSize: DefaultBatchSize,
	}
}

// SetProgressReporter sets the progress reporter for the builder.
func (b *Builder) SetProgressReporter(reporter ProgressReporter) {
	b.progress = reporter
}

// SetBatchSize overrides how many abstracts go into one embedding call.
func (b *Builder) SetBatchSize(n int) {
	if n > 0 {
		b.batchSize = n
	}
}

// Build creates an index from all papers with abstracts of at least
// MinAbstractLength characters.
func (b *Builder) Build(ctx context.Context, papers []paper.Paper) (*Index, *BuildStats, error) {
	startTime := time.Now()

	idx := NewIndex(b.provider.ModelName(), b.provider.Dimensions())
	stats := &BuildStats{SkippedReason: "no_abstract"}

	if b.store != nil {
		if err := b.store.ClearEmbeddingMetadata(); err != nil {
			return nil, nil, fmt.Errorf("clearing embedding metadata: %w", err)
		}
	}

	var eligible []paper.Paper
	for _, p := range papers {
		if !Eligible(p) {
			stats.PapersSkipped++
			continue
		}
		eligible = append(eligible, p)
	}

	for start := 0; start < len(eligible); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		end := min(start+b.batchSize, len(eligible))
		batch := eligible[start:end]
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = embeddingText(p.Abstract)
		}

		embs, err := b.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("embedding papers %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err)
		}

		for i, p := range batch {
			if err := idx.AddEmbedding(p.ID, embs[i].Vector); err != nil {
				return nil, nil, fmt.Errorf("adding embedding for %s: %w", p.ID, err)
			}
			stats.PapersIndexed++

			if b.store != nil {
				meta := storage.EmbeddingMetadata{
					PaperID:      p.ID,
					ModelName:    b.provider.ModelName(),
					IndexedAt:    time.Now().Unix(),
					AbstractHash: HashAbstract(p.Abstract),
				}
				if err := b.store.SaveEmbeddingMetadata(meta); err != nil {
					return nil, nil, fmt.Errorf("saving metadata for %s: %w", p.ID, err)
				}
			}
		}

		if b.progress != nil {
			b.progress.OnProgress(end, len(eligible))
		}
	}

	idx.SkippedCount = stats.PapersSkipped
	idx.BuildDurationMs = time.Since(startTime).Milliseconds()
	stats.Duration = time.Since(startTime)

	return idx, stats, nil
}

// Eligible reports whether a paper's abstract is long enough to index.
func Eligible(p paper.Paper) bool {
	return len(strings.TrimSpace(p.Abstract)) >= MinAbstractLength
}

func embeddingText(abstract string) string {
	abstract = strings.TrimSpace(abstract)
	if len(abstract) > MaxAbstractLength {
		return abstract[:MaxAbstractLength]
	}
	return abstract
}

// HashAbstract computes a SHA256 hash of the abstract text.
func HashAbstract(abstract string) string {
	h := sha256.New()
	io.WriteString(h, abstract)
	return fmt.Sprintf("%x", h.Sum(nil))
}
