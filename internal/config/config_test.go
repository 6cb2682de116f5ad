package config

import (
	"testing"
	"time"
)

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      int
		expected int
	}{
		{"unset uses default", "", 5, 5},
		{"valid value", "12", 5, 12},
		{"invalid value uses default", "banana", 5, 5},
		{"negative value uses default", "-3", 5, 5},
		{"zero uses default", "0", 5, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.value != "" {
				t.Setenv("FACETRACE_TEST_INT", tc.value)
			}
			result := envInt("FACETRACE_TEST_INT", tc.def)
			if result != tc.expected {
				t.Errorf("envInt(%q, %d) = %d; want %d", tc.value, tc.def, result, tc.expected)
			}
		})
	}
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{"unset uses default", "", time.Minute, time.Minute},
		{"valid value", "30s", time.Minute, 30 * time.Second},
		{"invalid value uses default", "soon", time.Minute, time.Minute},
		{"negative uses default", "-1s", time.Minute, time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.value != "" {
				t.Setenv("FACETRACE_TEST_DUR", tc.value)
			}
			result := envDuration("FACETRACE_TEST_DUR", tc.def)
			if result != tc.expected {
				t.Errorf("envDuration(%q) = %v; want %v", tc.value, result, tc.expected)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Embedding.FaceDim != 2622 {
		t.Errorf("default face dim = %d; want 2622", cfg.Embedding.FaceDim)
	}
	if cfg.Session.MinFreeResults != 5 {
		t.Errorf("default min free results = %d; want 5", cfg.Session.MinFreeResults)
	}
	if cfg.Publish.Strategy != "self-host" {
		t.Errorf("default publish strategy = %q; want self-host", cfg.Publish.Strategy)
	}
	if cfg.Session.Budget <= 0 {
		t.Error("session budget should be positive")
	}
}

func TestEmbeddedEngines(t *testing.T) {
	cfg := Load()

	if len(cfg.Engines.Engines) == 0 {
		t.Fatal("embedded engines.yaml should define at least one engine")
	}

	var free, metered int
	for _, e := range cfg.Engines.Engines {
		if e.Name == "" {
			t.Error("engine with empty name")
		}
		if e.Metered {
			metered++
		} else {
			free++
		}
	}
	if free == 0 {
		t.Error("expected at least one free engine")
	}
	if metered == 0 {
		t.Error("expected at least one metered engine")
	}
}
