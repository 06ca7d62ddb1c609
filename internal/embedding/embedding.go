// Package embedding defines the fixed-length face descriptor produced by the
// embedding network and the distance used to rank descriptors.
package embedding

import (
	"fmt"
)

// Dim is the number of components in a face embedding.
const Dim = 128

// Embedding is a 128-dimensional face descriptor. It is an array, so every
// assignment copies it and a stored value can never be changed through an alias.
type Embedding [Dim]float32

// SquaredDistance returns the squared Euclidean distance between a and b.
// No normalization is applied.
func SquaredDistance(a, b Embedding) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Mean returns the component-wise average of es. An empty slice yields the zero embedding.
func Mean(es []Embedding) Embedding {
	var out Embedding
	if len(es) == 0 {
		return out
	}

	var acc [Dim]float64
	for i := range es {
		for j, v := range es[i] {
			acc[j] += float64(v)
		}
	}
	n := float64(len(es))
	for j := range acc {
		out[j] = float32(acc[j] / n)
	}
	return out
}

// FromSlice converts a raw vector into an Embedding, rejecting wrong lengths.
func FromSlice(v []float32) (Embedding, error) {
	var e Embedding
	if len(v) != Dim {
		return e, fmt.Errorf("embedding must have %d components, got %d", Dim, len(v))
	}
	copy(e[:], v)
	return e, nil
}

// Slice returns a freshly allocated copy of e as a slice.
func (e Embedding) Slice() []float32 {
	out := make([]float32, Dim)
	copy(out, e[:])
	return out
}
