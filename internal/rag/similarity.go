package rag

import (
	"fmt"
	"math"

	"content-rag/internal/models"
)

// CosineSimilarity returns dot(a,b) / (|a||b|) in [-1, 1]. Vectors of
// different or zero length are an error; a zero-magnitude vector scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", models.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, nil
	}
	return math.Max(-1, math.Min(1, dot/denom)), nil
}
