// Package vector holds the similarity primitive used throughout the engine.
// All functions fail soft: a malformed vector yields a neutral result
// (similarity 0.0, literal "[]") rather than an error, so one bad embedding
// never aborts a batch.
package vector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, clamped to [0,1]. Negative cosine is floored to 0; natural
// language embeddings are assumed non-opposing. Returns 0.0 for empty,
// mismatched or non-finite input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		if !isFinite(x) || !isFinite(y) {
			return 0.0
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(0.0, math.Min(1.0, sim))
}

// Validate reports whether v is a vector of exactly expectedDim finite values.
func Validate(v []float32, expectedDim int) bool {
	if expectedDim <= 0 || len(v) != expectedDim {
		return false
	}
	return IsValid(v)
}

// IsValid reports whether v is non-empty and all components are finite.
func IsValid(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	for _, x := range v {
		if !isFinite(float64(x)) {
			return false
		}
	}
	return true
}

// ToWireLiteral renders v as a pgvector text literal: bracketed,
// comma-separated, 6 decimal places, no whitespace. Invalid vectors render
// as the empty-list literal so a bad value degrades to NULL-like storage
// instead of corrupting the column.
func ToWireLiteral(v []float32) string {
	if !IsValid(v) {
		return "[]"
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', 6, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseWireLiteral is the inverse of ToWireLiteral. The empty-list literal
// parses to nil.
func ParseWireLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("not a vector literal: %q", s)
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}

	parts := strings.Split(inner, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
