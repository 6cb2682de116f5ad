// Package publish exposes an uploaded image at a short-lived public URL so
// reverse-image-search engines can fetch it. Publications are owned by one
// session and must be deleted on every exit path.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NomadBuilder/facetrace/internal/config"
)

// ErrPublishFailed means no publisher could expose the image.
var ErrPublishFailed = errors.New("failed to publish image")

// Publication is a live ephemeral exposure of an image.
type Publication struct {
	ID        string
	URL       string
	CreatedAt time.Time
	Host      string // which publisher created it

	deleteToken string // opaque deletion credential for third-party hosts
}

// Publisher exposes an image publicly and tears the exposure down again.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, imageData []byte) (*Publication, error)
	Delete(ctx context.Context, pub *Publication) error
}

// Fallback tries the primary publisher and escalates to the secondary when
// the primary fails. Deletion routes back to whichever publisher created
// the publication.
type Fallback struct {
	primary   Publisher
	secondary Publisher
	logger    *slog.Logger
}

// NewFallback combines two publishers into an escalation pair.
func NewFallback(primary, secondary Publisher, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Name implements Publisher.
func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Publish implements Publisher.
func (f *Fallback) Publish(ctx context.Context, imageData []byte) (*Publication, error) {
	pub, err := f.primary.Publish(ctx, imageData)
	if err == nil {
		return pub, nil
	}
	f.logger.Warn("primary publisher failed, escalating",
		"primary", f.primary.Name(), "secondary", f.secondary.Name(), "error", err)

	pub, err2 := f.secondary.Publish(ctx, imageData)
	if err2 != nil {
		return nil, fmt.Errorf("%w: %s: %v; %s: %v",
			ErrPublishFailed, f.primary.Name(), err, f.secondary.Name(), err2)
	}
	return pub, nil
}

// Delete implements Publisher.
func (f *Fallback) Delete(ctx context.Context, pub *Publication) error {
	switch pub.Host {
	case f.secondary.Name():
		return f.secondary.Delete(ctx, pub)
	default:
		return f.primary.Delete(ctx, pub)
	}
}

// New builds the publisher configured by PUBLISH_STRATEGY. The self-hosted
// publisher is preferred by default: the image never leaves our
// infrastructure unless the operator opts in to a third-party host.
func New(cfg config.PublishConfig, store *Store, logger *slog.Logger) (Publisher, error) {
	switch cfg.Strategy {
	case "", "self-host":
		return NewSelfHosted(store, cfg.PublicBaseURL, logger)
	case "anonhost":
		return NewAnonHost(cfg.AnonHostURL, logger), nil
	case "auto":
		selfHosted, err := NewSelfHosted(store, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, err
		}
		return NewFallback(selfHosted, NewAnonHost(cfg.AnonHostURL, logger), logger), nil
	default:
		return nil, fmt.Errorf("unknown publish strategy %q", cfg.Strategy)
	}
}
