package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver
)

// schemaSQL creates the shared registry schema. Category values are free
// form; reasonFor maps the known ones to display reasons.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS threat_domains (
	domain   TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// openSQLite opens (creating if absent) a sqlite-backed registry at the
// given file path. This is the default backend.
func openSQLite(ctx context.Context, path string, logger *slog.Logger) (Registry, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=rwc", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database %s: %w", path, err)
	}
	// modernc sqlite does not support concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create registry schema: %w", err)
	}

	logger.Debug("opened sqlite threat registry", "path", path)
	return &sqlRegistry{
		db:     db,
		query:  "SELECT category FROM threat_domains WHERE domain = ?",
		upsert: "INSERT OR REPLACE INTO threat_domains (domain, category) VALUES (?, ?)",
		logger: logger,
	}, nil
}

// Seed inserts domains into a registry opened by this package. Intended for
// list imports and tests; existing entries are replaced. The upsert statement
// is backend-specific, so Seed works against any SQL registry.
func Seed(ctx context.Context, reg Registry, entries map[string]string) error {
	r, ok := reg.(*sqlRegistry)
	if !ok {
		return fmt.Errorf("registry backend does not support seeding")
	}
	for domain, category := range entries {
		_, err := r.db.ExecContext(ctx, r.upsert, CanonicalDomain(domain), category)
		if err != nil {
			return fmt.Errorf("failed to seed domain %q: %w", domain, err)
		}
	}
	return nil
}
