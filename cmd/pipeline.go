package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/NomadBuilder/facetrace/internal/config"
	"github.com/NomadBuilder/facetrace/internal/deepfake"
	"github.com/NomadBuilder/facetrace/internal/engines"
	"github.com/NomadBuilder/facetrace/internal/face"
	"github.com/NomadBuilder/facetrace/internal/match"
	"github.com/NomadBuilder/facetrace/internal/publish"
	"github.com/NomadBuilder/facetrace/internal/registry"
	"github.com/NomadBuilder/facetrace/internal/session"
)

// pipeline bundles the wired trace components shared by the serve and
// trace commands.
type pipeline struct {
	controller *session.Controller
	verifier   *match.Verifier
	store      *publish.Store // nil unless the self-hosted publisher is in play
	registry   registry.Registry
}

// close releases pipeline resources.
func (p *pipeline) close() {
	if p.registry != nil {
		p.registry.Close()
	}
}

// buildPipeline wires the full trace pipeline from configuration.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	// One embedding client per process; the deepfake feature analyzer
	// resolves the same instance.
	embedder := face.Shared(cfg.Embedding.URL)

	var store *publish.Store
	switch cfg.Publish.Strategy {
	case "", "self-host", "auto":
		s, err := publish.NewStore(cfg.Publish.SpoolDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create publication spool: %w", err)
		}
		store = s
	}
	publisher, err := publish.New(cfg.Publish, store, logger)
	if err != nil {
		return nil, err
	}

	engineSet := engines.Build(cfg.Engines.Engines, cfg.SerpAPI.Key, logger)
	discovery := engines.NewDiscovery(engineSet, cfg.Session.EngineTimeout, cfg.Session.MinFreeResults, logger)

	verifier := match.NewVerifier(embedder, cfg.Session.VerifyConcurrency, cfg.Session.MaxDownloadBytes, logger)
	analyzer := deepfake.Select(ctx, cfg, logger)

	// A broken registry should not block tracing; cross-referencing is
	// simply skipped.
	var reg registry.Registry
	if err := os.MkdirAll(config.DataDir(), 0o700); err != nil {
		logger.Warn("failed to create data directory", "error", err)
	}
	reg, err = registry.Open(ctx, cfg.Registry.URL, logger)
	if err != nil {
		logger.Warn("threat registry unavailable, cross-referencing disabled", "error", err)
		reg = nil
	}

	controller := session.NewController(
		embedder, publisher, discovery, verifier, analyzer, reg, cfg.Session, logger)

	return &pipeline{
		controller: controller,
		verifier:   verifier,
		store:      store,
		registry:   reg,
	}, nil
}
