package domain

import "math"

// CosineSimilarity computes dot(a,b) / (|a|*|b|) with float32 accumulation,
// one left-to-right pass per quantity. Callers must pass equal-length
// vectors. A zero-norm input yields NaN (0/0); that degenerate value is
// propagated, the similarity engine sorts it after every real score.
func CosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
	}
	for _, x := range a {
		normA += x * x
	}
	for _, y := range b {
		normB += y * y
	}
	return dot / (sqrt32(normA) * sqrt32(normB))
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
