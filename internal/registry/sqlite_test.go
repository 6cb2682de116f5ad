package registry

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteRegistry(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "threat.db")

	reg, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reg.Close()

	err = Seed(ctx, reg, map[string]string{
		"evil.example.com": "ncii",
		"Fakes.Example":    "deepfake",
	})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	t.Run("flagged domain", func(t *testing.T) {
		flagged, reason, err := reg.Lookup(ctx, "https://evil.example.com/gallery/123")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if !flagged {
			t.Fatal("expected domain to be flagged")
		}
		if reason != "Known NCII site" {
			t.Errorf("reason = %q; want Known NCII site", reason)
		}
	})

	t.Run("seed canonicalizes", func(t *testing.T) {
		flagged, reason, err := reg.Lookup(ctx, "http://www.fakes.example/page")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if !flagged || reason != "Known deepfake distribution site" {
			t.Errorf("flagged=%v reason=%q", flagged, reason)
		}
	})

	t.Run("clean domain", func(t *testing.T) {
		flagged, reason, err := reg.Lookup(ctx, "https://benign.example.org/")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if flagged || reason != "" {
			t.Errorf("clean domain flagged: %v %q", flagged, reason)
		}
	})

	t.Run("unusable input", func(t *testing.T) {
		flagged, _, err := reg.Lookup(ctx, "   ")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if flagged {
			t.Error("blank input must not flag")
		}
	})
}

func TestStaticRegistry(t *testing.T) {
	reg := Static{"bad.example.com": "ncii"}

	flagged, reason, err := reg.Lookup(context.Background(), "https://bad.example.com/x")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !flagged || reason != "Known NCII site" {
		t.Errorf("flagged=%v reason=%q", flagged, reason)
	}

	flagged, _, _ = reg.Lookup(context.Background(), "https://good.example.com/")
	if flagged {
		t.Error("unlisted domain flagged")
	}
}
