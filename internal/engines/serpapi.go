package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const serpAPIBaseURL = "https://serpapi.com/search"

// SerpAPI runs Google reverse image search through the SerpAPI aggregator.
// Every call consumes paid quota, so the discovery layer only reaches for
// it when the free engines come up short.
type SerpAPI struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewSerpAPI creates the metered engine. baseURL overrides the endpoint for
// tests; pass "" for the real service.
func NewSerpAPI(apiKey, baseURL string) *SerpAPI {
	if baseURL == "" {
		baseURL = serpAPIBaseURL
	}
	return &SerpAPI{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 25 * time.Second},
		baseURL: baseURL,
	}
}

// Name implements Engine.
func (s *SerpAPI) Name() string { return "serpapi" }

// Metered implements Engine.
func (s *SerpAPI) Metered() bool { return true }

type serpAPIResponse struct {
	ImageResults []struct {
		Link      string `json:"link"`
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnail"`
	} `json:"image_results"`
	Error string `json:"error"`
}

// Search implements Engine.
func (s *SerpAPI) Search(ctx context.Context, imageURL string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("engine", "google_reverse_image")
	q.Set("image_url", imageURL)
	q.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: serpapi: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: serpapi returned status %d", ErrEngineUnavailable, resp.StatusCode)
	}

	var parsed serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: serpapi: %s", ErrEngineUnavailable, parsed.Error)
	}

	out := make([]Candidate, 0, len(parsed.ImageResults))
	for _, r := range parsed.ImageResults {
		if r.Link == "" {
			continue
		}
		out = append(out, Candidate{
			URL:      r.Link,
			Title:    NormalizeTitle(r.Title),
			Source:   s.Name(),
			ImageURL: r.Thumbnail,
		})
	}
	return out, nil
}
