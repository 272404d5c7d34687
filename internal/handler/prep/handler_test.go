package prep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	prepService "github.com/zhouzirui/z-interview/backend/internal/service/prep"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
	"github.com/zhouzirui/z-interview/backend/internal/storage/memory"
)

type failingCompleter struct{}

func (failingCompleter) Complete(context.Context, string, string) (*schema.Message, error) {
	return nil, errors.New("model offline")
}

func setupRouter() (*chi.Mux, *memory.Store) {
	store := memory.NewStore()
	pipeline := prepService.NewFromCompleter(failingCompleter{}, ai.NewPromptManager(), prepService.Options{})
	tenants := tenant.NewMemoryStore([]tenant.Tenant{{ID: "acme", CompanyName: "Acme", Tone: "formal"}})

	r := chi.NewRouter()
	New(pipeline, tenants, store).RegisterRoutes(r)
	return r, store
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPrepReturnsFallbackAndPersists(t *testing.T) {
	r, store := setupRouter()
	resp := postJSON(r, "/prep", map[string]any{
		"sessionId": "room_1",
		"name":      "Ada",
		"lifeStage": "student",
		"resume":    map[string]any{"name": "Ada"},
		"tenantId":  "acme",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result prepService.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !result.UsedFallback || result.SessionID != "room_1" || result.Plan == nil || result.Briefing == nil {
		t.Fatalf("unexpected result: %+v", result)
	}

	record, err := storage.LoadPrep(context.Background(), store, "room_1")
	if err != nil {
		t.Fatalf("LoadPrep err: %v", err)
	}
	if record.TenantID != "acme" || record.CandidateName != "Ada" || !record.UsedFallback {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestPrepGeneratesSessionID(t *testing.T) {
	r, store := setupRouter()
	resp := postJSON(r, "/prep", map[string]any{"name": "Ada", "resume": map[string]any{"name": "Ada"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result prepService.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
	if store.Writes(storage.KindInterviewPrep) != 1 {
		t.Fatalf("expected one prep write, got %d", store.Writes(storage.KindInterviewPrep))
	}
}

func TestPrepRejectsInvalidBody(t *testing.T) {
	r, _ := setupRouter()
	req := httptest.NewRequest(http.MethodPost, "/prep", strings.NewReader("{not json"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPrepStreamEmitsStageEvents(t *testing.T) {
	r, _ := setupRouter()
	resp := postJSON(r, "/prep/stream", map[string]any{"sessionId": "room_2", "name": "Ada", "resume": map[string]any{"name": "Ada"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := resp.Body.String()
	order := []string{"event: session\n", "event: stage_started\n", "event: stage_finished\n", "event: fallback\n", "event: result\n"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(body, marker)
		if idx <= last {
			t.Fatalf("expected %q after position %d in:\n%s", marker, last, body)
		}
		last = idx
	}
	if !strings.Contains(body, `"session_id":"room_2"`) {
		t.Fatalf("result event missing session id:\n%s", body)
	}
}
