package deepfake

import (
	"context"
	"fmt"
	"math"

	"github.com/NomadBuilder/facetrace/internal/face"
)

// FeatureEmbedder is the subset of the embedding client the feature analyzer
// needs.
type FeatureEmbedder interface {
	ExtractFace(ctx context.Context, imageData []byte) (*face.Embedding, error)
}

// FeatureAnalyzer scores manipulation likelihood from statistics over the
// identity embedding: genuine face embeddings show broad, roughly symmetric
// activation, while synthesized faces tend toward flattened variance, skewed
// distributions, and sparse or outlier-heavy activations.
type FeatureAnalyzer struct {
	embedder FeatureEmbedder
}

// NewFeatureAnalyzer creates a feature-statistics analyzer.
func NewFeatureAnalyzer(embedder FeatureEmbedder) *FeatureAnalyzer {
	return &FeatureAnalyzer{embedder: embedder}
}

// featureStats holds the summary statistics used by the heuristics.
type featureStats struct {
	variance    float64
	skewness    float64
	sparsity    float64 // fraction of near-zero components
	outlierFrac float64 // fraction of components beyond 3 sigma
}

// computeFeatureStats summarizes an embedding vector.
func computeFeatureStats(vec []float32) featureStats {
	n := float64(len(vec))
	if n == 0 {
		return featureStats{}
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v)
	}
	mean := sum / n

	var m2, m3 float64
	var nearZero int
	for _, v := range vec {
		d := float64(v) - mean
		m2 += d * d
		m3 += d * d * d
		if math.Abs(float64(v)) < 1e-3 {
			nearZero++
		}
	}
	variance := m2 / n
	stddev := math.Sqrt(variance)

	var skew float64
	if stddev > 0 {
		skew = (m3 / n) / (stddev * stddev * stddev)
	}

	var outliers int
	if stddev > 0 {
		for _, v := range vec {
			if math.Abs(float64(v)-mean) > 3*stddev {
				outliers++
			}
		}
	}

	return featureStats{
		variance:    variance,
		skewness:    skew,
		sparsity:    float64(nearZero) / n,
		outlierFrac: float64(outliers) / n,
	}
}

// assessFeatures applies the heuristic rules to the statistics.
func assessFeatures(stats featureStats) *Assessment {
	indicators := []string{}
	confidence := 0.05

	if stats.variance < 0.002 {
		indicators = append(indicators, "flattened feature variance")
		confidence += 0.25
	}
	if math.Abs(stats.skewness) > 1.5 {
		indicators = append(indicators, "skewed feature distribution")
		confidence += 0.20
	}
	if stats.sparsity > 0.40 {
		indicators = append(indicators, "sparse activation pattern")
		confidence += 0.25
	}
	if stats.outlierFrac > 0.02 {
		indicators = append(indicators, "feature outliers beyond 3 sigma")
		confidence += 0.20
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Assessment{
		IsDeepfake: confidence >= deepfakeThreshold,
		Confidence: confidence,
		Method:     MethodFeature,
		Indicators: indicators,
	}
}

// Name implements Analyzer.
func (a *FeatureAnalyzer) Name() string { return MethodFeature }

// Analyze implements Analyzer.
func (a *FeatureAnalyzer) Analyze(ctx context.Context, imageData []byte) (*Assessment, error) {
	emb, err := a.embedder.ExtractFace(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}
	return assessFeatures(computeFeatureStats(emb.Vector)), nil
}
