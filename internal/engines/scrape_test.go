package engines

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const bingSampleHTML = `<html><body>
<div class="imgpt">
  <a class="iusc" m='{"murl":"https://img.example.com/a.jpg","purl":"https://site-a.example.com/page","t":"Match  on site A"}' href="#"></a>
</div>
<a class="iusc other" m='{"murl":"https://img.example.com/b.jpg","purl":"https://site-b.example.com/gallery","t":"Site B"}'></a>
<a class="iusc" m='not-json'></a>
<a class="plain" href="https://unrelated.example.com"></a>
</body></html>`

func TestBingSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "imgurl:https://pub.example.com/ephemeral/x" {
			t.Errorf("unexpected query %q", got)
		}
		w.Write([]byte(bingSampleHTML))
	}))
	defer srv.Close()

	eng := NewBing(srv.URL)
	candidates, err := eng.Search(context.Background(), "https://pub.example.com/ephemeral/x")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates; want 2", len(candidates))
	}
	if candidates[0].URL != "https://site-a.example.com/page" {
		t.Errorf("first candidate URL = %q", candidates[0].URL)
	}
	if candidates[0].Title != "Match on site A" {
		t.Errorf("title not normalized: %q", candidates[0].Title)
	}
	if candidates[0].ImageURL != "https://img.example.com/a.jpg" {
		t.Errorf("image URL = %q", candidates[0].ImageURL)
	}
	for _, c := range candidates {
		if c.Source != "bing" {
			t.Errorf("candidate source = %q; want bing", c.Source)
		}
	}
}

func TestBingServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewBing(srv.URL).Search(context.Background(), "https://pub.example.com/x"); err == nil {
		t.Error("expected error on 503")
	}
}

const yandexSampleHTML = `<html><body>
<ul class="CbirSites-Items">
  <li class="CbirSites-Item">
    <div class="CbirSites-ItemTitle"><a href="https://site-c.example.com/post/1">Found on site C</a></div>
  </li>
  <li class="CbirSites-Item">
    <div class="CbirSites-ItemTitle"><a href="https://site-d.example.com/profile">Site   D profile</a></div>
  </li>
  <li class="CbirSites-Item"><div>no anchor here</div></li>
</ul>
</body></html>`

func TestYandexSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("rpt"); got != "imageview" {
			t.Errorf("rpt = %q; want imageview", got)
		}
		w.Write([]byte(yandexSampleHTML))
	}))
	defer srv.Close()

	eng := NewYandex(srv.URL)
	candidates, err := eng.Search(context.Background(), "https://pub.example.com/ephemeral/y")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates; want 2", len(candidates))
	}
	if candidates[1].URL != "https://site-d.example.com/profile" {
		t.Errorf("second candidate URL = %q", candidates[1].URL)
	}
	if candidates[1].Title != "Site D profile" {
		t.Errorf("title not normalized: %q", candidates[1].Title)
	}
}

func TestSerpAPISearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google_reverse_image" {
			t.Errorf("engine = %q", q.Get("engine"))
		}
		if q.Get("api_key") != "test-key" {
			t.Errorf("api_key = %q", q.Get("api_key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"image_results":[
			{"link":"https://site-e.example.com/a","title":"Hit A"},
			{"link":"","title":"dropped"},
			{"link":"https://site-f.example.com/b","title":"Hit B"}
		]}`))
	}))
	defer srv.Close()

	eng := NewSerpAPI("test-key", srv.URL)
	if !eng.Metered() {
		t.Error("serpapi must report metered")
	}
	candidates, err := eng.Search(context.Background(), "https://pub.example.com/z")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates; want 2 (empty link dropped)", len(candidates))
	}
}

func TestSerpAPIErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Your account has run out of searches."}`))
	}))
	defer srv.Close()

	if _, err := NewSerpAPI("k", srv.URL).Search(context.Background(), "https://pub.example.com/z"); err == nil {
		t.Error("expected error from serpapi error field")
	}
}
