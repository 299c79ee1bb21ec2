package qloo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"alchemy/internal/services/qloo"
)

func analysisJSON() map[string]any {
	return map[string]any{
		"analysis": map[string]any{
			"themes": map[string]any{
				"current_obsessions": []map[string]any{{"topic": "neon"}},
			},
			"communication": map[string]any{
				"tone_preferences": []string{"bold"},
			},
			"aesthetics": map[string]any{
				"visual_styles": []string{"vaporwave"},
			},
			"brands": map[string]any{
				"loved_brands": []string{"acme"},
			},
		},
	}
}

func TestLookupDecodesAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cultural/intelligence" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			City    string `json:"city"`
			Country string `json:"country"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.City != "Tokyo" || req.Country != "Japan" {
			t.Errorf("unexpected locale %s/%s", req.City, req.Country)
		}
		_ = json.NewEncoder(w).Encode(analysisJSON())
	}))
	defer server.Close()

	client := qloo.NewClient(qloo.Config{APIKey: "k", BaseURL: server.URL})
	analysis, err := client.Lookup(context.Background(), "Tokyo", "Japan")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(analysis.Themes.CurrentObsessions) != 1 || analysis.Themes.CurrentObsessions[0].Topic != "neon" {
		t.Errorf("themes = %+v", analysis.Themes)
	}
	if analysis.Communication.TonePreferences[0] != "bold" {
		t.Errorf("tone = %v", analysis.Communication.TonePreferences)
	}
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]qloo.Analysis
	sets    int
}

func (m *memoryCache) Get(ctx context.Context, key string) (qloo.Analysis, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.entries[key]
	return a, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, analysis qloo.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]qloo.Analysis)
	}
	m.entries[key] = analysis
	m.sets++
	return nil
}

func TestLookupUsesCacheOnSecondCall(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(analysisJSON())
	}))
	defer server.Close()

	cache := &memoryCache{}
	client := qloo.NewClient(qloo.Config{APIKey: "k", BaseURL: server.URL}, qloo.WithCache(cache))

	for i := 0; i < 2; i++ {
		if _, err := client.Lookup(context.Background(), "Tokyo", "Japan"); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}
	if hits != 1 {
		t.Errorf("vendor hits = %d, want 1", hits)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestLookupRequiresLocale(t *testing.T) {
	client := qloo.NewClient(qloo.Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	if _, err := client.Lookup(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error for empty locale")
	}
}

func TestHintsSerializesCueSubset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(analysisJSON())
	}))
	defer server.Close()

	client := qloo.NewClient(qloo.Config{APIKey: "k", BaseURL: server.URL})
	analysis, err := client.Lookup(context.Background(), "Tokyo", "Japan")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	hints := analysis.Hints()
	if !json.Valid([]byte(hints)) {
		t.Fatalf("hints is not valid JSON: %s", hints)
	}
	for _, want := range []string{"neon", "bold", "vaporwave"} {
		if !strings.Contains(hints, want) {
			t.Errorf("hints %s missing %q", hints, want)
		}
	}
	if strings.Contains(hints, "acme") {
		t.Error("hints should not include brand signals")
	}
}
