package ai

import "testing"

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	if err := DecodeJSONObject("Here you go:\n```json\n{\"name\": \"Ada\"}\n```", &out); err != nil {
		t.Fatalf("DecodeJSONObject err: %v", err)
	}
	if out.Name != "Ada" {
		t.Fatalf("unexpected name: %q", out.Name)
	}

	if err := DecodeJSONObject("no json here", &out); err == nil {
		t.Fatal("expected error for missing object")
	}
	if err := DecodeJSONObject("{not json}", &out); err == nil {
		t.Fatal("expected error for malformed object")
	}
}
