package httputil

import (
	"net/http/httptest"
	"testing"
)

func TestResolveModel(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	if got := ResolveModel(r, "", "llama3"); got != "llama3" {
		t.Errorf("expected default, got %q", got)
	}
	if got := ResolveModel(r, " mistral ", "llama3"); got != "mistral" {
		t.Errorf("expected body model, got %q", got)
	}
	r.Header.Set(ModelHeader, "qwen2")
	if got := ResolveModel(r, "mistral", "llama3"); got != "qwen2" {
		t.Errorf("expected header model, got %q", got)
	}
}
