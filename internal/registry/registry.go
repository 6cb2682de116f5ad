// Package registry cross-references candidate domains against a curated
// list of known-abusive sites. Backends share one schema: a threat_domains
// table mapping a canonical domain to an abuse category.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Registry answers whether a domain is on the threat list.
type Registry interface {
	// Lookup returns whether the domain is flagged and, when it is, a
	// human-readable reason derived from its abuse category.
	Lookup(ctx context.Context, domain string) (bool, string, error)
	Close() error
}

// Open picks a backend from the registry URL scheme. postgres:// and
// mysql:// point at shared servers; anything else is treated as a sqlite
// file path, the default for single-node deployments.
func Open(ctx context.Context, registryURL string, logger *slog.Logger) (Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case strings.HasPrefix(registryURL, "postgres://"), strings.HasPrefix(registryURL, "postgresql://"):
		return openPostgres(ctx, registryURL, logger)
	case strings.HasPrefix(registryURL, "mysql://"):
		return openMySQL(ctx, registryURL, logger)
	default:
		return openSQLite(ctx, registryURL, logger)
	}
}

// sqlRegistry is the shared implementation over database/sql; only the
// driver, DSN, placeholder style and upsert dialect differ per backend.
type sqlRegistry struct {
	db     *sql.DB
	query  string
	upsert string
	logger *slog.Logger
}

func (r *sqlRegistry) Lookup(ctx context.Context, domain string) (bool, string, error) {
	canonical := CanonicalDomain(domain)
	if canonical == "" {
		return false, "", nil
	}

	var category string
	err := r.db.QueryRowContext(ctx, r.query, canonical).Scan(&category)
	switch {
	case err == sql.ErrNoRows:
		return false, "", nil
	case err != nil:
		return false, "", fmt.Errorf("registry lookup for %q failed: %w", canonical, err)
	}
	return true, reasonFor(category), nil
}

func (r *sqlRegistry) Close() error {
	return r.db.Close()
}

// Static is an in-memory registry keyed by canonical domain, mapping to an
// abuse category. Used for tests and air-gapped runs with a baked-in list.
type Static map[string]string

func (s Static) Lookup(_ context.Context, domain string) (bool, string, error) {
	category, ok := s[CanonicalDomain(domain)]
	if !ok {
		return false, "", nil
	}
	return true, reasonFor(category), nil
}

func (s Static) Close() error { return nil }
