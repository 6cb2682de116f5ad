package engines

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NomadBuilder/facetrace/internal/config"
)

// maxConcurrentEngines bounds the discovery fan-out.
const maxConcurrentEngines = 4

// Discovery fans a published image URL out to every configured engine and
// merges the results. Engine failures are isolated: one engine going down
// costs its results, never the search.
type Discovery struct {
	free           []Engine
	metered        Engine // may be nil
	engineTimeout  time.Duration
	minFreeResults int
	logger         *slog.Logger
}

// NewDiscovery wires the engine set. Engines reporting Metered() true are
// held back and queried only when the free engines return fewer than
// minFreeResults unique candidates.
func NewDiscovery(all []Engine, engineTimeout time.Duration, minFreeResults int, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Discovery{
		engineTimeout:  engineTimeout,
		minFreeResults: minFreeResults,
		logger:         logger,
	}
	for _, eng := range all {
		if eng.Metered() {
			// Last metered engine wins; we only budget for one.
			d.metered = eng
		} else {
			d.free = append(d.free, eng)
		}
	}
	return d
}

// Search queries all free engines concurrently, then escalates to the
// metered engine if the free tier produced too few unique candidates.
// Candidates are deduplicated by canonical URL.
func (d *Discovery) Search(ctx context.Context, imageURL string) []Candidate {
	var (
		mu   sync.Mutex
		seen = make(map[string]Candidate)
	)
	merge := func(candidates []Candidate) {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range candidates {
			key := CanonicalURL(c.URL)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; !ok {
				c.URL = key
				seen[key] = c
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEngines)
	for _, eng := range d.free {
		g.Go(func() error {
			engCtx, cancel := context.WithTimeout(gctx, d.engineTimeout)
			defer cancel()

			candidates, err := eng.Search(engCtx, imageURL)
			if err != nil {
				d.logger.Warn("search engine failed", "engine", eng.Name(), "error", err)
				return nil // isolate the failure
			}
			d.logger.Debug("search engine returned", "engine", eng.Name(), "candidates", len(candidates))
			merge(candidates)
			return nil
		})
	}
	g.Wait() // no engine returns an error; Wait only synchronizes

	if d.metered != nil && len(seen) < d.minFreeResults && ctx.Err() == nil {
		d.logger.Info("free engines below threshold, escalating to metered engine",
			"unique", len(seen), "threshold", d.minFreeResults, "engine", d.metered.Name())

		engCtx, cancel := context.WithTimeout(ctx, d.engineTimeout)
		candidates, err := d.metered.Search(engCtx, imageURL)
		cancel()
		if err != nil {
			d.logger.Warn("metered engine failed", "engine", d.metered.Name(), "error", err)
		} else {
			merge(candidates)
		}
	}

	out := make([]Candidate, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// manifestEngine overrides an engine's compiled-in metered flag with the
// manifest's, so billing policy lives in engines.yaml.
type manifestEngine struct {
	Engine
	metered bool
}

func (m manifestEngine) Metered() bool { return m.metered }

// Build instantiates the engines named in the manifest. Unknown names are
// skipped with a warning so a stale manifest cannot take discovery down.
// The serpapi engine is included only when an API key is present.
func Build(specs []config.EngineSpec, serpAPIKey string, logger *slog.Logger) []Engine {
	if logger == nil {
		logger = slog.Default()
	}
	var out []Engine
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		var eng Engine
		switch spec.Name {
		case "bing":
			eng = NewBing("")
		case "yandex":
			eng = NewYandex("")
		case "serpapi":
			if serpAPIKey == "" {
				logger.Info("serpapi engine disabled, no API key configured")
				continue
			}
			eng = NewSerpAPI(serpAPIKey, "")
		default:
			logger.Warn("unknown engine in manifest, skipping", "engine", spec.Name)
			continue
		}
		out = append(out, manifestEngine{Engine: eng, metered: spec.Metered})
	}
	return out
}
