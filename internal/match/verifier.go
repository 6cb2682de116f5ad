package match

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NomadBuilder/facetrace/internal/engines"
	"github.com/NomadBuilder/facetrace/internal/face"
)

// downloadTimeout bounds a single candidate image fetch; the session budget
// still caps the whole verification pass.
const downloadTimeout = 15 * time.Second

// Embedder extracts the dominant face embedding from image bytes.
type Embedder interface {
	ExtractFace(ctx context.Context, imageData []byte) (*face.Embedding, error)
}

// Verifier downloads candidate images and scores them against the
// reference face.
type Verifier struct {
	embedder    Embedder
	client      *http.Client
	concurrency int
	maxBytes    int64
	logger      *slog.Logger

	// OnProgress, when set, is called after each candidate completes.
	OnProgress func(done, total int)
}

// NewVerifier creates a verifier with the given worker cap and download
// size cap.
func NewVerifier(embedder Embedder, concurrency int, maxBytes int64, logger *slog.Logger) *Verifier {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		embedder:    embedder,
		client:      &http.Client{Timeout: downloadTimeout},
		concurrency: concurrency,
		maxBytes:    maxBytes,
		logger:      logger,
	}
}

// Verify scores every candidate against the reference embedding. A result
// is produced for every candidate: those whose image could not be fetched
// or carried no detectable face stay Verified=false but are never dropped.
// When the context expires, remaining candidates are returned unverified.
func (v *Verifier) Verify(ctx context.Context, reference []float32, candidates []engines.Candidate) []Result {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{
			URL:        c.URL,
			Title:      c.Title,
			SourceName: c.Source,
		}
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			defer func() {
				if v.OnProgress != nil {
					v.OnProgress(int(done.Add(1)), len(candidates))
				}
			}()

			if gctx.Err() != nil {
				return nil // budget exhausted, leave unverified
			}
			if c.ImageURL == "" {
				v.logger.Debug("candidate has no image to verify", "url", c.URL)
				return nil
			}

			v.verifyOne(gctx, reference, c, &results[i])
			return nil
		})
	}
	g.Wait()
	return results
}

func (v *Verifier) verifyOne(ctx context.Context, reference []float32, c engines.Candidate, result *Result) {
	data, err := v.download(ctx, c.ImageURL)
	if err != nil {
		v.logger.Debug("candidate image download failed", "url", c.ImageURL, "error", err)
		return
	}
	// Keep the bytes either way: unverifiable candidates can still be
	// grouped as duplicates by perceptual hash.
	result.imageData = data

	emb, err := v.embedder.ExtractFace(ctx, data)
	if err != nil {
		v.logger.Debug("no usable face in candidate image", "url", c.ImageURL, "error", err)
		return
	}

	result.SetMatch(face.CosineSimilarity(reference, emb.Vector))
	result.embedding = emb.Vector
}

func (v *Verifier) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > v.maxBytes {
		return nil, fmt.Errorf("image too large: %d bytes", resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, v.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > v.maxBytes {
		return nil, fmt.Errorf("image exceeds %d byte cap", v.maxBytes)
	}
	return data, nil
}
