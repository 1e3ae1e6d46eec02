package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashModelName identifies vectors produced by HashProvider.
const HashModelName = "hash-bow"

// HashProvider is an offline, deterministic embedder: each lowercased word
// is hashed into a signed bucket and the bag is L2-normalized. Texts sharing
// words get positively correlated vectors. It needs no model server.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a hashing embedder with the given width.
func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &HashProvider{dimensions: dimensions}
}

// Embed hashes text into a unit vector.
func (h *HashProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return Embedding{}, err
	}
	v := make([]float32, h.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New64a()
		f.Write([]byte(w))
		sum := f.Sum64()
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		v[sum%uint64(h.dimensions)] += sign
	}
	return Embedding{Vector: v}.Normalized(), nil
}

// EmbedBatch embeds each text in turn.
func (h *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	for i, text := range texts {
		e, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// ModelName returns HashModelName.
func (h *HashProvider) ModelName() string {
	return HashModelName
}

// Dimensions returns the vector width.
func (h *HashProvider) Dimensions() int {
	return h.dimensions
}
