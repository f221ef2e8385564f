package model

import (
	"math"
	"time"
)

// EmbeddingDimension is the dimension of the embedding vector
// Gemini text-embedding-004 uses 768 dimensions
const EmbeddingDimension = 768

// EmbeddingRecord is one bookmark's vector in the vector store. There is at
// most one record per (OwnerID, BookmarkID).
type EmbeddingRecord struct {
	OwnerID     OwnerID
	BookmarkID  BookmarkID
	Title       string
	URL         string
	Description string
	Embedding   []float32
	UpdatedAt   time.Time
}

// Neighbor is a vector store hit with its cosine similarity to the query
type Neighbor struct {
	BookmarkID BookmarkID
	Title      string
	URL        string
	Similarity float64
}

// SimilarityResult is one bookmark returned by a similarity search
type SimilarityResult struct {
	ID         BookmarkID `json:"id"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Similarity float64    `json:"similarity"`
}

// Similarity search defaults
const (
	DefaultSimilarLimit      = 10
	MaxSimilarLimit          = 50
	DefaultSimilarThreshold  = 0.5
	DefaultClusterThreshold  = 0.6
	DefaultClusterMinSize    = 3
	SimilarityRoundPrecision = 100
)

// CosineSimilarity returns dot(a,b)/(|a||b|). Mismatched lengths, empty
// vectors and zero norms give 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RoundSimilarity rounds a score to two decimals
func RoundSimilarity(v float64) float64 {
	return math.Round(v*SimilarityRoundPrecision) / SimilarityRoundPrecision
}

// ToFloat32 converts a provider vector to the stored precision
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
