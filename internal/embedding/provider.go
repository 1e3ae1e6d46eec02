package embedding

import (
	"context"
	"errors"
)

// ErrBatchSize is returned when a provider answers a batch with the wrong
// number of vectors.
var ErrBatchSize = errors.New("embedding batch size mismatch")

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch embeds texts in one logical call. The result is aligned
	// with texts.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}
