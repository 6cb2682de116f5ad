package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NomadBuilder/facetrace/internal/publish"
)

// EphemeralHandler serves self-hosted publications to search engine
// crawlers. Once a session deletes its publication the route 404s.
type EphemeralHandler struct {
	store  *publish.Store
	logger *slog.Logger
}

// NewEphemeralHandler creates the ephemeral image handler.
func NewEphemeralHandler(store *publish.Store, logger *slog.Logger) *EphemeralHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EphemeralHandler{store: store, logger: logger}
}

// Get serves one published image. Responses carry no-store and no-index
// headers so the image disappears from the outside world together with
// its publication.
func (h *EphemeralHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	data, ok := h.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("X-Robots-Tag", "noindex, noarchive")
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
