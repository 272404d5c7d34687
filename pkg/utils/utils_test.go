package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendSSEEvent(t *testing.T) {
	rr := httptest.NewRecorder()
	SetupSSEHeaders(rr)
	SendSSEEvent(rr, rr, "stage_started", map[string]string{"stage": "profile_analyzer"})

	if got := rr.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	want := "event: stage_started\ndata: {\"stage\":\"profile_analyzer\"}\n\n"
	if rr.Body.String() != want {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	if !rr.Flushed {
		t.Fatal("expected flush")
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada"}`))
	if err := DecodeJSON(req, 1024, &out); err != nil || out.Name != "Ada" {
		t.Fatalf("DecodeJSON = %v, name=%q", err, out.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada"}{"name":"Bob"}`))
	if err := DecodeJSON(req, 1024, &out); err == nil {
		t.Fatal("expected error for trailing data")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	if err := DecodeJSON(req, 16, &out); err == nil {
		t.Fatal("expected error for oversized body")
	}
}
