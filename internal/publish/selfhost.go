package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps live publications in memory with a disk spool copy. Lookup by
// id is what the web layer serves; remove deletes both copies so the URL
// 404s immediately.
type Store struct {
	mu       sync.RWMutex
	items    map[string]*storedImage
	spoolDir string
}

type storedImage struct {
	data      []byte
	createdAt time.Time
	path      string
}

// NewStore creates a publication store spooling to the given directory.
func NewStore(spoolDir string) (*Store, error) {
	if err := os.MkdirAll(spoolDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &Store{
		items:    make(map[string]*storedImage),
		spoolDir: spoolDir,
	}, nil
}

// put registers a publication. The id must be a bare name with no path
// separators; ids are uuids so anything else is a caller bug.
func (s *Store) put(id string, data []byte) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return fmt.Errorf("invalid publication id %q", id)
	}

	path := filepath.Join(s.spoolDir, id+".img")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to spool publication: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = &storedImage{
		data:      data,
		createdAt: time.Now(),
		path:      path,
	}
	return nil
}

// Get returns the image bytes for a live publication. On a miss it falls
// back to the disk spool, so a serve process can answer for publications
// made by a CLI session sharing the same spool directory.
func (s *Store) Get(id string) ([]byte, bool) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if ok {
		return item.data, true
	}

	if id == "" || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(s.spoolDir, id+".img"))
	if err != nil {
		return nil, false
	}
	return data, true
}

// remove deletes a publication from memory and disk. Removing an unknown id
// is a no-op so cleanup stays idempotent.
func (s *Store) remove(id string) error {
	s.mu.Lock()
	item, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.Remove(item.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove spool file: %w", err)
	}
	return nil
}

// Len returns the number of live publications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SelfHosted serves publications from our own web server. Images are
// stripped of metadata before exposure.
type SelfHosted struct {
	store   *Store
	baseURL string
	logger  *slog.Logger
}

// NewSelfHosted creates the self-hosting publisher. baseURL must be the
// externally reachable base of the web server.
func NewSelfHosted(store *Store, baseURL string, logger *slog.Logger) (*SelfHosted, error) {
	if baseURL == "" {
		return nil, errors.New("self-hosted publishing requires PUBLIC_BASE_URL")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SelfHosted{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Name implements Publisher.
func (p *SelfHosted) Name() string { return "self-host" }

// Publish implements Publisher.
func (p *SelfHosted) Publish(ctx context.Context, imageData []byte) (*Publication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stripped, tags, err := StripMetadata(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize image: %w", err)
	}
	if len(tags) > 0 {
		p.logger.Warn("stripped metadata before publication", "tags", len(tags), "gps", hasGPSTag(tags))
	}

	id := uuid.NewString()
	if err := p.store.put(id, stripped); err != nil {
		return nil, err
	}

	return &Publication{
		ID:        id,
		URL:       p.baseURL + "/ephemeral/" + id,
		CreatedAt: time.Now(),
		Host:      p.Name(),
	}, nil
}

// Delete implements Publisher.
func (p *SelfHosted) Delete(_ context.Context, pub *Publication) error {
	return p.store.remove(pub.ID)
}
