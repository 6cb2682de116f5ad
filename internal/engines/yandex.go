package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const yandexSearchURL = "https://yandex.com/images/search"

// Yandex scrapes the "sites containing this image" block of Yandex image
// search. Like Bing it is free and markup-fragile.
type Yandex struct {
	client  *http.Client
	baseURL string
}

// NewYandex creates the Yandex scraper. baseURL overrides the endpoint for
// tests; pass "" for the real engine.
func NewYandex(baseURL string) *Yandex {
	if baseURL == "" {
		baseURL = yandexSearchURL
	}
	return &Yandex{
		client:  &http.Client{Timeout: 25 * time.Second},
		baseURL: baseURL,
	}
}

// Name implements Engine.
func (y *Yandex) Name() string { return "yandex" }

// Metered implements Engine.
func (y *Yandex) Metered() bool { return false }

// Search implements Engine.
func (y *Yandex) Search(ctx context.Context, imageURL string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("rpt", "imageview")
	q.Set("url", imageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yandex: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yandex returned status %d", ErrEngineUnavailable, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse yandex response: %w", err)
	}
	return y.extract(doc), nil
}

func (y *Yandex) extract(doc *html.Node) []Candidate {
	var out []Candidate
	for node := range doc.Descendants() {
		if node.Type != html.ElementNode || !hasClass(node, "CbirSites-Item") {
			continue
		}
		if anchor := findAnchor(node); anchor != nil {
			out = append(out, Candidate{
				URL:      attrValue(anchor, "href"),
				Title:    NormalizeTitle(textContent(anchor)),
				Source:   y.Name(),
				ImageURL: findImageSrc(node),
			})
		}
	}
	return out
}

func hasClass(node *html.Node, class string) bool {
	for _, attr := range node.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func findAnchor(node *html.Node) *html.Node {
	for child := range node.Descendants() {
		if child.Type == html.ElementNode && child.Data == "a" && attrValue(child, "href") != "" {
			return child
		}
	}
	return nil
}

func findImageSrc(node *html.Node) string {
	for child := range node.Descendants() {
		if child.Type == html.ElementNode && child.Data == "img" {
			if src := attrValue(child, "src"); src != "" {
				return src
			}
		}
	}
	return ""
}

func attrValue(node *html.Node, key string) string {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(node *html.Node) string {
	var sb strings.Builder
	for child := range node.Descendants() {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return sb.String()
}
