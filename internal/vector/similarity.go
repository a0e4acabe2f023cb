package vector

import (
	"fmt"
	"math"
)

// unitNormTolerance is how far an embedding's L2 norm may drift from 1.0
// before it is rejected. Scores are computed as raw dot products, so a
// non-unit vector corrupts them silently rather than failing loudly.
const unitNormTolerance = 0.01

// DotProduct computes the dot product of two vectors.
// For unit-normalized inputs this equals their cosine similarity.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm computes the L2 norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Validate checks that an embedding has the expected dimension and is
// unit-normalized within tolerance.
func Validate(embedding []float32) error {
	if len(embedding) != Dim {
		return fmt.Errorf("embedding has dimension %d, expected %d", len(embedding), Dim)
	}
	norm := Norm(embedding)
	if math.Abs(norm-1.0) > unitNormTolerance {
		return fmt.Errorf("embedding is not unit-normalized: L2 norm %.4f", norm)
	}
	return nil
}
