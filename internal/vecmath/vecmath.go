// Package vecmath holds the small amount of dense-vector arithmetic shared by
// the selector, the tree builder, and the cluster router.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Epsilon guards divisions by a vector norm.
const Epsilon = 1e-9

// ToFloat64 widens an embedding for gonum.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// ToFloat32 narrows a gonum vector back to embedding precision.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Cosine returns the cosine similarity of a and b. Mismatched lengths, empty
// vectors, and zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	return Cosine64(ToFloat64(a), ToFloat64(b))
}

// Cosine64 is Cosine on float64 vectors.
func Cosine64(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	n := floats.Norm(out, 2)
	floats.Scale(1/(n+Epsilon), out)
	return out
}

// Dot is the inner product of equal-length vectors; mismatched lengths yield 0.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	return floats.Dot(a, b)
}

// Clamp01 bounds x to [0, 1].
func Clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// Softmax returns exp(scale*x_i) / sum_j exp(scale*x_j), computed with the
// max subtracted for stability. An empty input yields nil.
func Softmax(xs []float64, scale float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	floats.Scale(scale, out)
	floats.AddConst(-floats.Max(out), out)
	for i, x := range out {
		out[i] = math.Exp(x)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Mean returns the element-wise mean of equal-length vectors, or nil.
func Mean(vs [][]float32) []float32 {
	if len(vs) == 0 {
		return nil
	}
	acc := make([]float64, len(vs[0]))
	n := 0
	for _, v := range vs {
		if len(v) != len(acc) {
			continue
		}
		floats.Add(acc, ToFloat64(v))
		n++
	}
	if n == 0 {
		return nil
	}
	floats.Scale(1/float64(n), acc)
	return ToFloat32(acc)
}
