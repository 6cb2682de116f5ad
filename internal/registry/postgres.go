package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS threat_domains (
	domain   TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// openPostgres connects to a shared postgres-backed registry.
func openPostgres(ctx context.Context, dsn string, logger *slog.Logger) (Registry, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres registry: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres registry: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create registry schema: %w", err)
	}

	logger.Debug("opened postgres threat registry")
	return &sqlRegistry{
		db:     db,
		query:  "SELECT category FROM threat_domains WHERE domain = $1",
		upsert: "INSERT INTO threat_domains (domain, category) VALUES ($1, $2) ON CONFLICT (domain) DO UPDATE SET category = EXCLUDED.category",
		logger: logger,
	}, nil
}
