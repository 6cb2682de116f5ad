// Package face extracts identity embeddings from images using the external
// embedding server and scores their similarity.
package face

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNoFaceDetected means the image decoded fine but contains no face.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrCorruptImage means the embedding server rejected the image bytes.
	ErrCorruptImage = errors.New("corrupt or unsupported image")
	// ErrModelUnavailable means the embedding server could not be reached.
	ErrModelUnavailable = errors.New("embedding model unavailable")
)

// Embedding is a fixed-dimension identity vector for a single face.
type Embedding struct {
	Vector   []float32
	Dim      int
	BBox     [4]float64 // x1, y1, x2, y2
	DetScore float64
}

// BBoxArea returns the area of the face bounding box.
func (e *Embedding) BBoxArea() float64 {
	w := e.BBox[2] - e.BBox[0]
	h := e.BBox[3] - e.BBox[1]
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// Client computes face embeddings using the embedding server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new embedding client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
)

// Shared returns the process-wide embedding client, created on first use.
// The client is read-only after creation and safe for concurrent use.
func Shared(baseURL string) *Client {
	sharedOnce.Do(func() {
		sharedClient = NewClient(baseURL)
	})
	return sharedClient
}

// faceDetection represents a single detected face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// ExtractFace detects faces in the image and returns the embedding of the
// face with the largest bounding box. Ties break on detector score, then on
// face index, so identical input always yields the same face.
func (c *Client) ExtractFace(ctx context.Context, imageData []byte) (*Embedding, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse face response: %w", err)
	}

	if resp.FacesCount == 0 || len(resp.Faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	best := largestFace(resp.Faces)
	if len(best.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding for detected face", ErrModelUnavailable)
	}

	emb := &Embedding{
		Vector:   best.Embedding,
		Dim:      best.Dim,
		DetScore: best.DetScore,
	}
	copy(emb.BBox[:], best.BBox)
	if emb.Dim == 0 {
		emb.Dim = len(best.Embedding)
	}
	return emb, nil
}

// largestFace picks the face with the largest bounding-box area.
func largestFace(faces []faceDetection) faceDetection {
	best := faces[0]
	bestArea := bboxArea(best.BBox)
	for _, f := range faces[1:] {
		area := bboxArea(f.BBox)
		switch {
		case area > bestArea:
			best, bestArea = f, area
		case area == bestArea && f.DetScore > best.DetScore:
			best = f
		}
	}
	return best
}

func bboxArea(bbox []float64) float64 {
	if len(bbox) < 4 {
		return 0
	}
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: server said: %s", ErrCorruptImage, string(body))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrModelUnavailable, resp.StatusCode, string(body))
	}
}

// DetectMIMEType detects the MIME type from image data.
func DetectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
