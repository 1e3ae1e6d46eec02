package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := Normalize([]float64{0, 0})
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestSoftmax(t *testing.T) {
	out := Softmax([]float64{1, 1, 1}, 5)
	require.Len(t, out, 3)
	for _, x := range out {
		assert.InDelta(t, 1.0/3, x, 1e-9)
	}

	skewed := Softmax([]float64{1, 0}, 5)
	assert.InDelta(t, 1/(1+math.Exp(-5)), skewed[0], 1e-9)
	assert.InDelta(t, 1.0, skewed[0]+skewed[1], 1e-9)

	assert.Nil(t, Softmax(nil, 5))
}

func TestMean(t *testing.T) {
	m := Mean([][]float32{{1, 3}, {3, 5}, {9}})
	assert.Equal(t, []float32{2, 4}, m)
	assert.Nil(t, Mean(nil))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.2))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.4, Clamp01(0.4))
}
