package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/matsen/searchforest/internal/vecmath"
)

type countingProvider struct {
	HashProvider
	batches [][]string
	fail    bool
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.fail {
		return nil, errors.New("boom")
	}
	return c.HashProvider.EmbedBatch(ctx, texts)
}

func TestCachedProvider_EmbedBatchOnlyMisses(t *testing.T) {
	inner := &countingProvider{HashProvider: *NewHashProvider(16)}
	cached, err := NewCachedProvider(inner, 8)
	if err != nil {
		t.Fatalf("NewCachedProvider() error = %v", err)
	}
	ctx := context.Background()

	first, err := cached.EmbedBatch(ctx, []string{"graph", "tree", "graph"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(inner.batches) != 1 || len(inner.batches[0]) != 2 {
		t.Fatalf("inner batches = %v, want one batch of 2 distinct texts", inner.batches)
	}
	if vecmath.Cosine(first[0].Vector, first[2].Vector) < 0.999 {
		t.Error("duplicate texts should share a vector")
	}

	if _, err := cached.EmbedBatch(ctx, []string{"tree", "forest"}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if got := inner.batches[1]; len(got) != 1 || got[0] != "forest" {
		t.Errorf("second inner batch = %v, want [forest]", got)
	}
	if cached.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cached.Len())
	}
}

func TestCachedProvider_ErrorNotCached(t *testing.T) {
	inner := &countingProvider{HashProvider: *NewHashProvider(16), fail: true}
	cached, err := NewCachedProvider(inner, 0)
	if err != nil {
		t.Fatalf("NewCachedProvider() error = %v", err)
	}

	if _, err := cached.EmbedBatch(context.Background(), []string{"x"}); err == nil {
		t.Fatal("EmbedBatch() expected error")
	}
	if cached.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failure", cached.Len())
	}
}

func TestHashProvider_Deterministic(t *testing.T) {
	h := NewHashProvider(64)
	ctx := context.Background()

	a, _ := h.Embed(ctx, "Quantum computing applications")
	b, _ := h.Embed(ctx, "quantum computing applications")
	c, _ := h.Embed(ctx, "protein folding")

	if vecmath.Cosine(a.Vector, b.Vector) < 0.999 {
		t.Error("case should not change the vector")
	}
	if vecmath.Cosine(a.Vector, c.Vector) > 0.9 {
		t.Error("unrelated texts should not be near-identical")
	}
	if h.ModelName() != HashModelName || h.Dimensions() != 64 {
		t.Errorf("ModelName/Dimensions = %s/%d", h.ModelName(), h.Dimensions())
	}
}

func TestProviders_ImplementProvider(t *testing.T) {
	var _ Provider = (*CachedProvider)(nil)
	var _ Provider = (*HashProvider)(nil)
}
