package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/NomadBuilder/facetrace/internal/face"
	"github.com/NomadBuilder/facetrace/internal/publish"
	"github.com/NomadBuilder/facetrace/internal/session"
)

// maxUploadSize caps the uploaded image at 20 MiB.
const maxUploadSize = 20 << 20

// SubmitRunner runs a trace session for an uploaded image.
type SubmitRunner interface {
	Submit(ctx context.Context, imageData []byte) (*session.Result, error)
}

// SubmitHandler handles trace submissions.
type SubmitHandler struct {
	runner SubmitRunner
	logger *slog.Logger
}

// NewSubmitHandler creates the submit handler.
func NewSubmitHandler(runner SubmitRunner, logger *slog.Logger) *SubmitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitHandler{runner: runner, logger: logger}
}

// Submit accepts a multipart image upload and runs a full trace session,
// responding with the verified results.
func (h *SubmitHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded image")
		return
	}
	if len(imageData) > maxUploadSize {
		respondError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	if len(imageData) == 0 {
		respondError(w, http.StatusBadRequest, "uploaded image is empty")
		return
	}

	h.logger.Info("trace submitted",
		"filename", sanitizeForLog(header.Filename), "bytes", len(imageData))

	result, err := h.runner.Submit(r.Context(), imageData)
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// respondSubmitError maps pipeline failures to status codes that let the
// client distinguish "bad input" from "try again later".
func (h *SubmitHandler) respondSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, face.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in the uploaded image")
	case errors.Is(err, face.ErrCorruptImage):
		respondError(w, http.StatusUnprocessableEntity, "uploaded image could not be decoded")
	case errors.Is(err, face.ErrModelUnavailable):
		respondError(w, http.StatusServiceUnavailable, "face analysis is temporarily unavailable")
	case errors.Is(err, publish.ErrPublishFailed):
		respondError(w, http.StatusBadGateway, "failed to publish image for searching")
	default:
		h.logger.Error("trace session failed", "error", err)
		respondError(w, http.StatusInternalServerError, "trace session failed")
	}
}
