package embedding

import "testing"

func TestEmbedding_Dimensions(t *testing.T) {
	tests := []struct {
		name     string
		vector   []float32
		expected int
	}{
		{
			name:     "384 dimensions",
			vector:   make([]float32, 384),
			expected: 384,
		},
		{
			name:     "empty vector",
			vector:   []float32{},
			expected: 0,
		},
		{
			name:     "small vector",
			vector:   []float32{1.0, 2.0, 3.0},
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := Embedding{Vector: tt.vector}
			if got := emb.Dimensions(); got != tt.expected {
				t.Errorf("Dimensions() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestEmbedding_Normalized(t *testing.T) {
	emb := Embedding{Vector: []float32{3, 4}}.Normalized()
	if d := emb.Vector[0] - 0.6; d > 1e-6 || d < -1e-6 {
		t.Errorf("Normalized()[0] = %v, want 0.6", emb.Vector[0])
	}

	zero := Embedding{Vector: []float32{0, 0}}.Normalized()
	if zero.Vector[0] != 0 || zero.Vector[1] != 0 {
		t.Errorf("Normalized() of zero vector = %v, want zeros", zero.Vector)
	}
}
