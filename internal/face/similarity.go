package face

import "math"

// Tier is a discrete confidence bucket derived from similarity.
type Tier string

const (
	TierNoMatch Tier = "NoMatch"
	TierLow     Tier = "Low"
	TierMedium  Tier = "Medium"
	TierHigh    Tier = "High"
)

// TierFor maps a similarity score to its confidence tier.
// The thresholds are fixed: <0.6 NoMatch, [0.6,0.7) Low, [0.7,0.8) Medium, >=0.8 High.
func TierFor(similarity float64) Tier {
	switch {
	case similarity >= 0.8:
		return TierHigh
	case similarity >= 0.7:
		return TierMedium
	case similarity >= 0.6:
		return TierLow
	default:
		return TierNoMatch
	}
}

// CosineSimilarity computes the cosine similarity between two embedding
// vectors, clamped to [0, 1]. Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
