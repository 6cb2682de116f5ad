package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const bingSearchURL = "https://www.bing.com/images/search"

// Bing scrapes Bing visual search. Free, no API key, but the markup can
// shift under us, so parse failures degrade to zero results rather than
// errors.
type Bing struct {
	client  *http.Client
	baseURL string
}

// NewBing creates the Bing scraper. baseURL overrides the endpoint for tests;
// pass "" for the real engine.
func NewBing(baseURL string) *Bing {
	if baseURL == "" {
		baseURL = bingSearchURL
	}
	return &Bing{
		client:  &http.Client{Timeout: 25 * time.Second},
		baseURL: baseURL,
	}
}

// Name implements Engine.
func (b *Bing) Name() string { return "bing" }

// Metered implements Engine.
func (b *Bing) Metered() bool { return false }

// Search implements Engine.
func (b *Bing) Search(ctx context.Context, imageURL string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("view", "detailv2")
	q.Set("iss", "sbi")
	q.Set("q", "imgurl:"+imageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: bing: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bing returned status %d", ErrEngineUnavailable, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bing response: %w", err)
	}
	return b.extract(doc), nil
}

// bingMeta is the JSON blob Bing embeds in each result anchor's "m"
// attribute.
type bingMeta struct {
	MediaURL string `json:"murl"`
	PageURL  string `json:"purl"`
	Title    string `json:"t"`
}

func (b *Bing) extract(doc *html.Node) []Candidate {
	var out []Candidate
	for node := range doc.Descendants() {
		if node.Type != html.ElementNode || node.Data != "a" {
			continue
		}
		var class, meta string
		for _, attr := range node.Attr {
			switch attr.Key {
			case "class":
				class = attr.Val
			case "m":
				meta = attr.Val
			}
		}
		if !strings.Contains(class, "iusc") || meta == "" {
			continue
		}

		var m bingMeta
		if err := json.Unmarshal([]byte(meta), &m); err != nil || m.PageURL == "" {
			continue
		}
		out = append(out, Candidate{
			URL:      m.PageURL,
			Title:    NormalizeTitle(m.Title),
			Source:   b.Name(),
			ImageURL: m.MediaURL,
		})
	}
	return out
}

// browserUserAgent keeps scrape engines from being served the no-JS
// fallback page, which carries no result markup.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
