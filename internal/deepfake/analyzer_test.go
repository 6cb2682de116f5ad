package deepfake

import (
	"context"
	"errors"
	"testing"
)

type stubAnalyzer struct {
	name       string
	assessment *Assessment
	err        error
	calls      int
}

func (s *stubAnalyzer) Name() string { return s.name }

func (s *stubAnalyzer) Analyze(_ context.Context, _ []byte) (*Assessment, error) {
	s.calls++
	return s.assessment, s.err
}

func TestChainUsesFirstSuccess(t *testing.T) {
	first := &stubAnalyzer{name: "first", assessment: &Assessment{Method: "first", Confidence: 0.2, Indicators: []string{}}}
	second := &stubAnalyzer{name: "second", assessment: &Assessment{Method: "second"}}

	chain := NewChain(nil, first, second)
	got, err := chain.Analyze(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("chain should never error, got %v", err)
	}
	if got.Method != "first" {
		t.Errorf("method = %q; want first", got.Method)
	}
	if second.calls != 0 {
		t.Error("second analyzer should not run when the first succeeds")
	}
}

func TestChainFallsBack(t *testing.T) {
	first := &stubAnalyzer{name: "first", err: errors.New("model down")}
	second := &stubAnalyzer{name: "second", assessment: &Assessment{Method: "second", Indicators: []string{}}}

	chain := NewChain(nil, first, second)
	got, err := chain.Analyze(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("chain should never error, got %v", err)
	}
	if got.Method != "second" {
		t.Errorf("method = %q; want second", got.Method)
	}
}

func TestChainAllFailuresReportsUnknown(t *testing.T) {
	first := &stubAnalyzer{name: "first", err: errors.New("down")}
	second := &stubAnalyzer{name: "second", err: errors.New("also down")}

	chain := NewChain(nil, first, second)
	got, err := chain.Analyze(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("chain should never error, got %v", err)
	}
	if got.Method != MethodUnknown {
		t.Errorf("method = %q; want %q", got.Method, MethodUnknown)
	}
	if got.IsDeepfake {
		t.Error("unknown assessment must not claim a deepfake")
	}
	if got.Indicators == nil {
		t.Error("indicators should be an empty list, not nil")
	}
}

func TestParseVisionVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", `{"is_deepfake": true, "confidence": 0.8, "indicators": ["warped jaw"]}`, false},
		{"valid empty indicators", `{"is_deepfake": false, "confidence": 0.1, "indicators": []}`, false},
		{"not json", "probably fine", true},
		{"confidence out of range", `{"is_deepfake": true, "confidence": 3.0}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseVisionVerdict(tc.content)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestVerdictThresholdOverridesModelBoolean(t *testing.T) {
	v := &visionVerdict{IsDeepfake: true, Confidence: 0.1}
	if v.toAssessment().IsDeepfake {
		t.Error("low confidence must not be reported as a deepfake")
	}
	v = &visionVerdict{IsDeepfake: false, Confidence: 0.9}
	if !v.toAssessment().IsDeepfake {
		t.Error("high confidence must be reported as a deepfake")
	}
}
