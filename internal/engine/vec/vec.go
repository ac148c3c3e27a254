// Package vec holds the small amount of vector math shared between
// speaker calibration and identity resolution.
package vec

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1]. Vectors
// of mismatched or zero length, or with zero norm, score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineDistance returns 1 minus the cosine similarity.
func CosineDistance(a, b []float32) float64 {
	return 1 - Cosine(a, b)
}
