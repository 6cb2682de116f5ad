// Package engines queries reverse-image-search engines for pages where a
// published image appears. Free scrape-based engines run first; a metered
// API engine is consulted only when the free tier comes up short.
package engines

import (
	"context"
	"errors"
)

// ErrEngineUnavailable means the engine could not be queried at all, as
// opposed to returning zero results.
var ErrEngineUnavailable = errors.New("search engine unavailable")

// Candidate is a single page returned by an engine, before verification.
type Candidate struct {
	URL      string
	Title    string
	Source   string // engine that found it
	ImageURL string // matched image on the page, when the engine reports one
}

// Engine performs a reverse image search for a public image URL.
type Engine interface {
	Name() string
	// Metered reports whether each query consumes paid quota.
	Metered() bool
	Search(ctx context.Context, imageURL string) ([]Candidate, error)
}
