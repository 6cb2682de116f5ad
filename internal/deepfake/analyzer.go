// Package deepfake assesses whether an image shows signs of manipulation.
// Several analysis methods sit behind a common interface; the best available
// one is selected once at startup and the rest serve as fallbacks.
package deepfake

import (
	"context"
	"log/slog"

	"github.com/NomadBuilder/facetrace/internal/config"
	"github.com/NomadBuilder/facetrace/internal/face"
)

// Analysis method identifiers reported in Assessment.Method.
const (
	MethodVisionLLM = "vision_llm"
	MethodFeature   = "feature_analysis"
	MethodArtifact  = "artifact_analysis"
	MethodUnknown   = "unknown"
)

// deepfakeThreshold is the confidence above which an image is reported as a
// likely deepfake.
const deepfakeThreshold = 0.4

// Assessment is the authenticity verdict for an image.
type Assessment struct {
	IsDeepfake bool     `json:"is_deepfake"`
	Confidence float64  `json:"confidence"`
	Method     string   `json:"method"`
	Indicators []string `json:"indicators"`
}

// Unknown returns the assessment used when no analysis method succeeded.
func Unknown() *Assessment {
	return &Assessment{Method: MethodUnknown, Indicators: []string{}}
}

// Analyzer is one manipulation-analysis method.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, imageData []byte) (*Assessment, error)
}

// Chain tries each analyzer in order and returns the first successful
// assessment. It never fails: when every method errors it reports the
// "unknown" assessment, so deepfake analysis can never block the pipeline.
type Chain struct {
	analyzers []Analyzer
	logger    *slog.Logger
}

// NewChain builds a fallback chain over the given analyzers.
func NewChain(logger *slog.Logger, analyzers ...Analyzer) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{analyzers: analyzers, logger: logger}
}

// Name returns the name of the preferred analyzer.
func (c *Chain) Name() string {
	if len(c.analyzers) == 0 {
		return MethodUnknown
	}
	return c.analyzers[0].Name()
}

// Analyze runs the chain. The returned error is always nil.
func (c *Chain) Analyze(ctx context.Context, imageData []byte) (*Assessment, error) {
	for _, a := range c.analyzers {
		assessment, err := a.Analyze(ctx, imageData)
		if err != nil {
			c.logger.Warn("deepfake analyzer failed, trying next",
				"method", a.Name(), "error", err)
			continue
		}
		return assessment, nil
	}
	return Unknown(), nil
}

// Select probes available dependencies and builds the analyzer chain:
// vision LLM when an API key is configured, feature statistics when the
// embedding server is configured, artifact statistics always.
func Select(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}

	var analyzers []Analyzer
	if cfg.OpenAI.Token != "" {
		analyzers = append(analyzers, NewOpenAIAnalyzer(cfg.OpenAI.Token))
	} else if cfg.Gemini.APIKey != "" {
		g, err := NewGeminiAnalyzer(ctx, cfg.Gemini.APIKey)
		if err != nil {
			logger.Warn("gemini analyzer unavailable", "error", err)
		} else {
			analyzers = append(analyzers, g)
		}
	}
	if cfg.Embedding.URL != "" {
		analyzers = append(analyzers, NewFeatureAnalyzer(face.Shared(cfg.Embedding.URL)))
	}
	analyzers = append(analyzers, NewArtifactAnalyzer())

	logger.Info("deepfake analysis method selected", "method", analyzers[0].Name())
	return NewChain(logger, analyzers...)
}
