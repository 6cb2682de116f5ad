package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnonHost publishes through a third-party anonymous file host with a
// 0x0-style API: multipart upload returning the public URL in the body and a
// deletion token in the X-Token header. Used only when self-hosting is not
// reachable from the search engines, or when the operator opts in.
type AnonHost struct {
	uploadURL string
	client    *http.Client
	logger    *slog.Logger
}

// NewAnonHost creates the third-party publisher.
func NewAnonHost(uploadURL string, logger *slog.Logger) *AnonHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnonHost{
		uploadURL: strings.TrimSuffix(uploadURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// Name implements Publisher.
func (p *AnonHost) Name() string { return "anonhost" }

// Publish implements Publisher.
func (p *AnonHost) Publish(ctx context.Context, imageData []byte) (*Publication, error) {
	stripped, _, err := StripMetadata(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(stripped); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	publicURL := strings.TrimSpace(string(body))
	if _, err := url.ParseRequestURI(publicURL); err != nil {
		return nil, fmt.Errorf("host returned invalid URL %q", publicURL)
	}

	return &Publication{
		ID:          uuid.NewString(),
		URL:         publicURL,
		CreatedAt:   time.Now(),
		Host:        p.Name(),
		deleteToken: resp.Header.Get("X-Token"),
	}, nil
}

// Delete implements Publisher. Deletion on the anonymous host is best
// effort: without a token the file ages out on the host's own schedule.
func (p *AnonHost) Delete(ctx context.Context, pub *Publication) error {
	if pub.deleteToken == "" {
		p.logger.Warn("no deletion token for third-party publication, relying on host expiry", "url", pub.URL)
		return nil
	}

	form := url.Values{}
	form.Set("token", pub.deleteToken)
	form.Set("delete", pub.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete failed with status %d", resp.StatusCode)
	}
	return nil
}
