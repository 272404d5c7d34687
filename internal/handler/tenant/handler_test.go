package tenant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
)

func setupRouter(items []tenant.Tenant) *chi.Mux {
	r := chi.NewRouter()
	New(tenant.NewMemoryStore(items)).RegisterRoutes(r)
	return r
}

func TestListTenantsDefaultsWhenEmpty(t *testing.T) {
	r := setupRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var tenants []tenant.Tenant
	if err := json.Unmarshal(resp.Body.Bytes(), &tenants); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(tenants) != 1 || tenants[0].ID != tenant.DefaultID {
		t.Fatalf("unexpected tenants: %+v", tenants)
	}
}

func TestResolveTenantContext(t *testing.T) {
	r := setupRouter([]tenant.Tenant{{
		ID:          "acme",
		CompanyName: "Acme",
		Tone:        "formal",
		Positions: []tenant.Position{
			{ID: "be", Title: "Backend Engineer", FocusArea: "Distributed systems"},
			{ID: "pm", Title: "Product Manager", FocusArea: "Discovery"},
		},
	}})

	req := httptest.NewRequest(http.MethodGet, "/tenants/acme/context?position=pm", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Context     tenant.Context `json:"context"`
		PromptBlock string         `json:"promptBlock"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body.Context.PositionID != "pm" || !strings.Contains(body.PromptBlock, "- Position: Product Manager") {
		t.Fatalf("unexpected context: %+v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/tenants/unknown/context", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
