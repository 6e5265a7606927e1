package httputil

import (
	"net/http"
	"strings"
)

// ModelHeader lets callers pick the Ollama model independently of the
// provider-specific model name in the request body.
const ModelHeader = "X-Ollama-Model"

// SetSSEHeaders sets the standard headers for a Server-Sent Events response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// ResolveModel picks the Ollama model for a request using the following priority:
//
//  1. X-Ollama-Model header
//  2. model named in the request body
//  3. defaultModel
func ResolveModel(r *http.Request, requested, defaultModel string) string {
	if m := strings.TrimSpace(r.Header.Get(ModelHeader)); m != "" {
		return m
	}
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	return defaultModel
}
