package report

import (
	"strings"
	"testing"
	"time"

	"github.com/NomadBuilder/facetrace/internal/deepfake"
	"github.com/NomadBuilder/facetrace/internal/match"
	"github.com/NomadBuilder/facetrace/internal/session"
)

func sampleResult() *session.Result {
	r1 := match.Result{URL: "https://strong.example.com/p", SourceName: "bing"}
	r1.SetMatch(0.85)
	r2 := match.Result{URL: "https://evil.example.net/g", SourceName: "yandex",
		Flagged: true, FlagReason: "Known NCII site"}
	r2.SetMatch(0.72)
	r3 := match.Result{URL: "https://dead.example.org/x", SourceName: "bing"}

	return &session.Result{
		SessionID:    "sess-1",
		Results:      []match.Result{r1, r2, r3},
		TotalResults: 3,
		FlaggedCount: 1,
		Deepfake: &deepfake.Assessment{
			IsDeepfake: true,
			Confidence: 0.75,
			Method:     deepfake.MethodArtifact,
			Indicators: []string{"uniform compression blocks"},
		},
		State:   session.StateCompleted,
		Elapsed: 42 * time.Second,
	}
}

func TestMarkdownWriter(t *testing.T) {
	var buf strings.Builder
	if err := NewMarkdownWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Face Trace Report",
		"sess-1",
		"## Deepfake Assessment",
		"Likely manipulated",
		"uniform compression blocks",
		"## Matches",
		"https://strong.example.com/p",
		"High (0.85)",
		"Known NCII site",
		"unverified",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestMarkdownWriterEmptyResult(t *testing.T) {
	var buf strings.Builder
	result := &session.Result{
		SessionID: "sess-2",
		Results:   []match.Result{},
		Deepfake:  deepfake.Unknown(),
		State:     session.StateCompleted,
	}
	if err := NewMarkdownWriter(&buf).Write(result); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "No candidate pages were found.") {
		t.Error("empty report missing no-results text")
	}
	if !strings.Contains(out, "No appearances of this face were found.") {
		t.Error("empty report missing reassurance tip")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-te", 10, "exactly-te"},
		{"this is definitely too long", 10, "this is..."},
		{"abc", 2, "ab"},
	}
	for _, tc := range tests {
		if got := truncateString(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("truncateString(%q, %d) = %q; want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
