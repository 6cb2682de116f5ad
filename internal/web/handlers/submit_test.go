package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NomadBuilder/facetrace/internal/deepfake"
	"github.com/NomadBuilder/facetrace/internal/face"
	"github.com/NomadBuilder/facetrace/internal/match"
	"github.com/NomadBuilder/facetrace/internal/publish"
	"github.com/NomadBuilder/facetrace/internal/session"
)

type fakeRunner struct {
	result *session.Result
	err    error
}

func (f *fakeRunner) Submit(_ context.Context, _ []byte) (*session.Result, error) {
	return f.result, f.err
}

func multipartImageRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, "face.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(data)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submit", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSubmitSuccess(t *testing.T) {
	flagged := match.Result{URL: "https://evil.example.net/g", SourceName: "yandex",
		Flagged: true, FlagReason: "Known NCII site"}
	flagged.SetMatch(0.72)

	runner := &fakeRunner{result: &session.Result{
		SessionID:    "sess-1",
		Results:      []match.Result{flagged},
		TotalResults: 1,
		FlaggedCount: 1,
		Deepfake:     &deepfake.Assessment{Confidence: 0.1, Method: deepfake.MethodArtifact, Indicators: []string{}},
		State:        session.StateCompleted,
	}}

	rec := httptest.NewRecorder()
	NewSubmitHandler(runner, nil).Submit(rec, multipartImageRequest(t, "image", []byte("jpeg-bytes")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var body struct {
		Results []struct {
			URL             string  `json:"url"`
			FaceSimilarity  float64 `json:"face_similarity"`
			MatchConfidence string  `json:"match_confidence"`
			Verified        bool    `json:"verified"`
			Flagged         bool    `json:"flagged"`
			FlagReason      string  `json:"flag_reason"`
		} `json:"results"`
		TotalResults int              `json:"total_results"`
		FlaggedCount int              `json:"flagged_count"`
		Deepfake     *json.RawMessage `json:"deepfake_detection"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if body.TotalResults != 1 || body.FlaggedCount != 1 {
		t.Errorf("counts = %d/%d; want 1/1", body.TotalResults, body.FlaggedCount)
	}
	if len(body.Results) != 1 {
		t.Fatalf("results = %d; want 1", len(body.Results))
	}
	r := body.Results[0]
	if !r.Verified || !r.Flagged || r.FlagReason != "Known NCII site" || r.MatchConfidence != "Medium" {
		t.Errorf("unexpected result payload: %+v", r)
	}
	if body.Deepfake == nil {
		t.Error("deepfake_detection missing from response")
	}
}

func TestSubmitMissingImageField(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSubmitHandler(&fakeRunner{}, nil).Submit(rec, multipartImageRequest(t, "photo", []byte("x")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestSubmitEmptyImage(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSubmitHandler(&fakeRunner{}, nil).Submit(rec, multipartImageRequest(t, "image", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no face", face.ErrNoFaceDetected, http.StatusUnprocessableEntity},
		{"corrupt image", face.ErrCorruptImage, http.StatusUnprocessableEntity},
		{"model down", face.ErrModelUnavailable, http.StatusServiceUnavailable},
		{"publish failed", publish.ErrPublishFailed, http.StatusBadGateway},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewSubmitHandler(&fakeRunner{err: tc.err}, nil).Submit(rec, multipartImageRequest(t, "image", []byte("x")))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, tc.wantStatus)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error JSON: %v", err)
			}
			if body["error"] == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q; want ok", body["status"])
	}
}
