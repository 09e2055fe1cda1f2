// Package vector provides the typed embedding vector and similarity helpers.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon keeps cosine similarity finite when either vector has zero norm.
const Epsilon = 1e-12

// ErrDimensionMismatch is returned when two vectors (or a vector and an expected
// dimensionality) disagree in length.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Vector is a fixed-length embedding. The zero value (nil) is an absent vector.
type Vector []float32

// Dim returns the number of components.
func (v Vector) Dim() int {
	return len(v)
}

// Validate reports whether v is usable as an embedding of the given dimensionality.
// A dim of 0 accepts any non-empty length.
func (v Vector) Validate(dim int) error {
	if len(v) == 0 {
		return errors.New("empty vector")
	}
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(v), dim)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite component at %d", i)
		}
	}
	return nil
}

// Clone returns a copy that shares no memory with v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// InnerProduct returns the dot product of a and b.
func InnerProduct(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x Vector) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a,b) / (|a|*|b| + Epsilon). Range is [-1, 1] for non-zero
// inputs and 0 when either input is the zero vector.
func Cosine(a, b Vector) (float64, error) {
	dot, err := InnerProduct(a, b)
	if err != nil {
		return 0, err
	}
	return dot / (L2Norm(a)*L2Norm(b) + Epsilon), nil
}

// Mean returns the component-wise arithmetic mean of vs.
func Mean(vs ...Vector) (Vector, error) {
	if len(vs) == 0 {
		return nil, errors.New("mean of zero vectors")
	}
	dim := len(vs[0])
	sums := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(v), dim)
		}
		for i, x := range v {
			sums[i] += float64(x)
		}
	}
	out := make(Vector, dim)
	n := float64(len(vs))
	for i, s := range sums {
		out[i] = float32(s / n)
	}
	return out, nil
}

// NormalizeL2 normalizes v in place to unit L2 norm.
// If the norm is zero, v is unchanged.
func NormalizeL2(v Vector) {
	norm := L2Norm(v)
	if norm == 0 {
		return
	}
	inv := 1.0 / norm
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// ConsensusDim returns the most common non-zero length among vs. Ties go to the
// length seen first. Returns 0 when vs holds no non-empty vector.
func ConsensusDim(vs []Vector) int {
	counts := make(map[int]int)
	order := make([]int, 0, 2)
	for _, v := range vs {
		if len(v) == 0 {
			continue
		}
		if _, seen := counts[len(v)]; !seen {
			order = append(order, len(v))
		}
		counts[len(v)]++
	}
	best, bestCount := 0, 0
	for _, d := range order {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
