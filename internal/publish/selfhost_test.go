package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStorePutGetRemove(t *testing.T) {
	store := testStore(t)

	if err := store.put("abc123", []byte("image-bytes")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	data, ok := store.Get("abc123")
	if !ok {
		t.Fatal("expected publication to be live")
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected data %q", data)
	}

	// Spool file exists while live.
	spoolPath := filepath.Join(store.spoolDir, "abc123.img")
	if _, err := os.Stat(spoolPath); err != nil {
		t.Errorf("spool file missing: %v", err)
	}

	if err := store.remove("abc123"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := store.Get("abc123"); ok {
		t.Error("publication should be gone after remove")
	}
	if _, err := os.Stat(spoolPath); !os.IsNotExist(err) {
		t.Error("spool file should be deleted")
	}

	// Removing again is a no-op.
	if err := store.remove("abc123"); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
}

func TestStoreGetFallsBackToSpool(t *testing.T) {
	dir := t.TempDir()
	cli, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	srv, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	// A publication spooled by one process is servable by another sharing
	// the spool directory.
	if err := cli.put("shared-id", []byte("spooled-bytes")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	data, ok := srv.Get("shared-id")
	if !ok {
		t.Fatal("expected spool fallback to find the publication")
	}
	if string(data) != "spooled-bytes" {
		t.Errorf("unexpected data %q", data)
	}

	// Removal deletes the spool file, so the fallback misses too.
	if err := cli.remove("shared-id"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := srv.Get("shared-id"); ok {
		t.Error("publication should be gone after remove")
	}

	// The fallback never escapes the spool directory.
	if _, ok := srv.Get("../escape"); ok {
		t.Error("path traversal must not hit the fallback")
	}
}

func TestStoreRejectsPathTraversal(t *testing.T) {
	store := testStore(t)

	tests := []string{
		"../escape",
		"..",
		"a/b",
		`a\b`,
		"",
	}
	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			if err := store.put(id, []byte("x")); err == nil {
				t.Errorf("put(%q) should fail", id)
			}
		})
	}
}

func TestSelfHostedLifecycle(t *testing.T) {
	store := testStore(t)
	p, err := NewSelfHosted(store, "https://trace.example.com/", nil)
	if err != nil {
		t.Fatalf("NewSelfHosted failed: %v", err)
	}

	pub, err := p.Publish(context.Background(), []byte("plain bytes without exif"))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if !strings.HasPrefix(pub.URL, "https://trace.example.com/ephemeral/") {
		t.Errorf("unexpected URL %q", pub.URL)
	}
	if pub.Host != "self-host" {
		t.Errorf("host = %q; want self-host", pub.Host)
	}
	if _, ok := store.Get(pub.ID); !ok {
		t.Error("publication should be retrievable while live")
	}

	if err := p.Delete(context.Background(), pub); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Get(pub.ID); ok {
		t.Error("publication should be gone after delete")
	}
	if store.Len() != 0 {
		t.Errorf("store should be empty, has %d items", store.Len())
	}
}

func TestSelfHostedRequiresBaseURL(t *testing.T) {
	if _, err := NewSelfHosted(testStore(t), "", nil); err == nil {
		t.Error("expected error without a public base URL")
	}
}

