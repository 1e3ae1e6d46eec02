package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of texts memoized by a CachedProvider.
const DefaultCacheSize = 4096

// CachedProvider memoizes another provider's embeddings by exact text.
// It is safe for concurrent use.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// NewCachedProvider wraps inner with an LRU of the given size.
func NewCachedProvider(inner Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &CachedProvider{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text or asks the wrapped provider.
func (c *CachedProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if v, ok := c.cache.Get(text); ok {
		return Embedding{Vector: v}, nil
	}
	e, err := c.inner.Embed(ctx, text)
	if err != nil {
		return Embedding{}, err
	}
	c.cache.Add(text, e.Vector)
	return e, nil
}

// EmbedBatch sends only the texts not already cached to the wrapped
// provider, in one batch.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	var missing []string
	missingAt := make(map[string][]int)
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = Embedding{Vector: v}
			continue
		}
		if _, queued := missingAt[text]; !queued {
			missing = append(missing, text)
		}
		missingAt[text] = append(missingAt[text], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBatchSize, len(fresh), len(missing))
	}
	for j, text := range missing {
		c.cache.Add(text, fresh[j].Vector)
		for _, i := range missingAt[text] {
			out[i] = fresh[j]
		}
	}
	return out, nil
}

// Len returns the number of cached texts.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

// ModelName returns the wrapped provider's model name.
func (c *CachedProvider) ModelName() string {
	return c.inner.ModelName()
}

// Dimensions returns the wrapped provider's dimensions.
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}
