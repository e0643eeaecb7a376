// Package vectorstore persists chunk embeddings, either in an embedded
// on-disk database or in postgres with pgvector, and scores
// nearest-neighbour lookups.
package vectorstore

import "math"

// RelevanceScore maps the cosine similarity of two unit vectors to [0,1]
// through their squared euclidean distance, d = 2 - 2*cos, as 1 - d/sqrt(2).
// Near-duplicates score close to 1; orthogonal vectors score about 0.
func RelevanceScore(cosine float64) float64 {
	distance := 2 - 2*cosine
	score := 1 - distance/math.Sqrt2
	return math.Max(0, math.Min(1, score))
}
