// Package session orchestrates one face trace end to end: extract the
// reference face, publish the image ephemerally, search, verify, run the
// deepfake assessment and cross-reference the threat registry. The
// published image is torn down on every exit path, success or not.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NomadBuilder/facetrace/internal/config"
	"github.com/NomadBuilder/facetrace/internal/deepfake"
	"github.com/NomadBuilder/facetrace/internal/engines"
	"github.com/NomadBuilder/facetrace/internal/face"
	"github.com/NomadBuilder/facetrace/internal/match"
	"github.com/NomadBuilder/facetrace/internal/publish"
	"github.com/NomadBuilder/facetrace/internal/registry"
)

// cleanupGrace bounds publication teardown after the session budget is
// spent; cleanup must run even when the budget context is already dead.
const cleanupGrace = 10 * time.Second

// Embedder extracts the dominant face from image bytes.
type Embedder interface {
	ExtractFace(ctx context.Context, imageData []byte) (*face.Embedding, error)
}

// Discoverer fans the published image URL out to the search engines.
type Discoverer interface {
	Search(ctx context.Context, imageURL string) []engines.Candidate
}

// CandidateVerifier scores candidates against the reference embedding.
type CandidateVerifier interface {
	Verify(ctx context.Context, reference []float32, candidates []engines.Candidate) []match.Result
}

// Result is the complete outcome of a trace session.
type Result struct {
	SessionID    string               `json:"session_id"`
	Results      []match.Result       `json:"results"`
	TotalResults int                  `json:"total_results"`
	FlaggedCount int                  `json:"flagged_count"`
	Deepfake     *deepfake.Assessment `json:"deepfake_detection"`
	State        State                `json:"state"`
	Elapsed      time.Duration        `json:"-"`
}

// Controller runs trace sessions. All collaborators are injected so each
// stage can be exercised in isolation.
type Controller struct {
	embedder  Embedder
	publisher publish.Publisher
	discovery Discoverer
	verifier  CandidateVerifier
	analyzer  deepfake.Analyzer
	registry  registry.Registry // may be nil, cross-referencing is then skipped
	cfg       config.SessionConfig
	logger    *slog.Logger
}

// NewController wires the pipeline stages together.
func NewController(
	embedder Embedder,
	publisher publish.Publisher,
	discovery Discoverer,
	verifier CandidateVerifier,
	analyzer deepfake.Analyzer,
	reg registry.Registry,
	cfg config.SessionConfig,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		embedder:  embedder,
		publisher: publisher,
		discovery: discovery,
		verifier:  verifier,
		analyzer:  analyzer,
		registry:  reg,
		cfg:       cfg,
		logger:    logger,
	}
}

// Submit runs one full trace for the uploaded image. The whole session runs
// under the configured time budget; whatever was verified when the budget
// runs out is returned. The published copy of the image is always deleted
// before Submit returns.
func (c *Controller) Submit(ctx context.Context, imageData []byte) (*Result, error) {
	start := time.Now()
	sessionID := uuid.NewString()
	logger := c.logger.With("session", sessionID)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Budget)
	defer cancel()

	result := &Result{
		SessionID: sessionID,
		Results:   []match.Result{},
		State:     StateUploaded,
	}
	fail := func(err error) (*Result, error) {
		result.State = StateFailed
		result.Elapsed = time.Since(start)
		logger.Warn("session failed", "state", StateFailed, "error", err)
		return result, err
	}

	logger.Info("session started", "state", StateUploaded, "bytes", len(imageData))

	// Reference face first: without one there is nothing to trace and
	// nothing may be published.
	reference, err := c.embedder.ExtractFace(ctx, imageData)
	if err != nil {
		return fail(fmt.Errorf("face extraction failed: %w", err))
	}
	result.State = StateFaceDetected
	logger.Info("reference face extracted", "state", StateFaceDetected,
		"dim", reference.Dim, "det_score", reference.DetScore)

	// Deepfake analysis needs only the original bytes, so it runs
	// alongside the search pipeline.
	assessmentCh := make(chan *deepfake.Assessment, 1)
	go func() {
		assessment, _ := c.analyzer.Analyze(ctx, imageData) // Chain never errors
		if assessment == nil {
			assessment = deepfake.Unknown()
		}
		assessmentCh <- assessment
	}()

	pub, err := c.publisher.Publish(ctx, imageData)
	if err != nil {
		result.Deepfake = <-assessmentCh
		return fail(fmt.Errorf("ephemeral publication failed: %w", err))
	}
	result.State = StatePublished
	logger.Info("image published", "state", StatePublished, "host", pub.Host, "id", pub.ID)

	// Teardown must survive budget expiry, so it gets its own context.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupGrace)
		defer cancel()
		if err := c.publisher.Delete(cleanupCtx, pub); err != nil {
			logger.Error("failed to delete published image", "id", pub.ID, "error", err)
			return
		}
		logger.Info("published image deleted", "state", StateCleaned, "id", pub.ID)
	}()

	result.State = StateSearching
	logger.Info("searching engines", "state", StateSearching)
	candidates := c.discovery.Search(ctx, pub.URL)
	logger.Info("search complete", "candidates", len(candidates))

	result.State = StateVerifying
	logger.Info("verifying candidates", "state", StateVerifying, "count", len(candidates))
	results := c.verifier.Verify(ctx, reference.Vector, candidates)
	match.GroupDuplicates(results)

	result.State = StateCrossReferencing
	c.crossReference(ctx, results, logger)

	result.Deepfake = <-assessmentCh
	result.Results = results
	result.TotalResults = len(results)
	for i := range results {
		if results[i].Flagged {
			result.FlaggedCount++
		}
	}

	result.State = StateCompleted
	result.Elapsed = time.Since(start)
	logger.Info("session completed", "state", StateCompleted,
		"results", result.TotalResults, "flagged", result.FlaggedCount,
		"elapsed", result.Elapsed)
	return result, nil
}

// crossReference flags results whose domain is on the threat list. Registry
// errors cost only the affected lookup, never the session.
func (c *Controller) crossReference(ctx context.Context, results []match.Result, logger *slog.Logger) {
	if c.registry == nil {
		return
	}
	for i := range results {
		flagged, reason, err := c.registry.Lookup(ctx, results[i].URL)
		if err != nil {
			logger.Warn("registry lookup failed", "url", results[i].URL, "error", err)
			continue
		}
		if flagged {
			results[i].Flagged = true
			results[i].FlagReason = reason
		}
	}
}
