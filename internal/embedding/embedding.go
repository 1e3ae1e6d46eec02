// Package embedding provides vector embedding generation for text.
package embedding

import "github.com/matsen/searchforest/internal/vecmath"

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // The embedding vector (e.g., 384 dimensions for all-minilm)
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Normalized returns a unit-length copy. A zero vector stays zero.
func (e Embedding) Normalized() Embedding {
	return Embedding{Vector: vecmath.ToFloat32(vecmath.Normalize(vecmath.ToFloat64(e.Vector)))}
}

// Vectors unwraps a batch of embeddings.
func Vectors(es []Embedding) [][]float32 {
	out := make([][]float32, len(es))
	for i, e := range es {
		out[i] = e.Vector
	}
	return out
}
