//go:build integration

package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresContainer(t *testing.T) (Registry, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	reg, err := Open(ctx, dbURL, nil)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open postgres registry: %v", err)
	}

	cleanup := func() {
		reg.Close()
		container.Terminate(ctx)
	}
	return reg, cleanup
}

func TestPostgresRegistry(t *testing.T) {
	reg, cleanup := setupPostgresContainer(t)
	if reg == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	err := Seed(ctx, reg, map[string]string{
		"evil.example.com": "ncii",
		"fakes.example":    "deepfake",
	})
	if err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}

	t.Run("flagged domain", func(t *testing.T) {
		flagged, reason, err := reg.Lookup(ctx, "https://www.evil.example.com/a")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if !flagged || reason != "Known NCII site" {
			t.Errorf("flagged=%v reason=%q", flagged, reason)
		}
	})

	t.Run("clean domain", func(t *testing.T) {
		flagged, _, err := reg.Lookup(ctx, "https://benign.example.org/")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if flagged {
			t.Error("clean domain flagged")
		}
	})

	t.Run("seeding again replaces the category", func(t *testing.T) {
		if err := Seed(ctx, reg, map[string]string{"evil.example.com": "scraper"}); err != nil {
			t.Fatalf("Re-seed failed: %v", err)
		}
		flagged, reason, err := reg.Lookup(ctx, "evil.example.com")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if !flagged || reason != "Known face-scraping aggregator" {
			t.Errorf("flagged=%v reason=%q", flagged, reason)
		}
	})
}
