package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/z-interview/backend/internal/storage/memory"
)

func TestHealthReportsCapabilities(t *testing.T) {
	router := NewRouter(Deps{Store: memory.NewStore()})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["status"] != "healthy" || body["pipeline"] != false || body["realtime"] != false || body["enhancer"] != false {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestPrepUnavailableWithoutPipeline(t *testing.T) {
	router := NewRouter(Deps{Store: memory.NewStore()})

	req := httptest.NewRequest(http.MethodPost, "/api/prep", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestGenerateProfileUnavailableWithoutEnhancer(t *testing.T) {
	router := NewRouter(Deps{Store: memory.NewStore()})

	req := httptest.NewRequest(http.MethodPost, "/api/generate-profile", strings.NewReader(`{"session_id":"s1"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestRouterAppliesCORS(t *testing.T) {
	router := NewRouter(Deps{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/tenants", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
