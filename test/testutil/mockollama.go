package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"
)

// MockOllama is an httptest.Server that simulates an Ollama /api/generate endpoint.
type MockOllama struct {
	Server *httptest.Server

	// Configurable response fields
	Answer string
	Model  string

	// StatusCode, when non-zero and not 200, is returned with RawBody.
	StatusCode int
	// RawBody, when set, replaces the JSON body of a blocking response.
	RawBody string
	// Delay holds every response back; the handler returns early when the
	// client goes away.
	Delay time.Duration
	// StallAfter, when positive, makes a streaming response hang after that
	// many chunks until the client goes away.
	StallAfter int
	// UnknownModels are answered with 404 and Ollama's "model not found" body.
	UnknownModels []string

	mu          sync.Mutex
	lastRequest map[string]any
	requests    int
}

// NewMockOllama creates and starts a mock Ollama server answering with answer.
func NewMockOllama(answer string) *MockOllama {
	m := &MockOllama{Answer: answer, Model: "mock-model"}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Close shuts down the mock server.
func (m *MockOllama) Close() {
	m.Server.Close()
}

// URL returns the base URL of the mock server.
func (m *MockOllama) URL() string {
	return m.Server.URL
}

// GenerateURL returns the full generate endpoint URL.
func (m *MockOllama) GenerateURL() string {
	return m.Server.URL + "/api/generate"
}

// LastRequest returns the most recent request body parsed.
func (m *MockOllama) LastRequest() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Requests returns how many generate requests the mock received.
func (m *MockOllama) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *MockOllama) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.lastRequest = body
	m.requests++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if model, _ := body["model"].(string); slices.Contains(m.UnknownModels, model) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":"model '%s' not found"}`, model)
		return
	}

	if m.StatusCode != 0 && m.StatusCode != http.StatusOK {
		w.WriteHeader(m.StatusCode)
		fmt.Fprint(w, m.RawBody)
		return
	}

	if stream, _ := body["stream"].(bool); stream {
		m.writeStreaming(w, r)
		return
	}
	m.writeBlocking(w)
}

func (m *MockOllama) writeBlocking(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if m.RawBody != "" {
		fmt.Fprint(w, m.RawBody)
		return
	}
	resp := map[string]any{
		"model":             m.Model,
		"created_at":        time.Now().UTC().Format(time.RFC3339Nano),
		"response":          m.Answer,
		"done":              true,
		"done_reason":       "stop",
		"prompt_eval_count": 7,
		"eval_count":        len(strings.Fields(m.Answer)),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *MockOllama) writeStreaming(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, hasFlusher := w.(http.Flusher)

	// Split the answer into words for a realistic stream
	words := strings.Fields(m.Answer)
	if len(words) == 0 {
		words = []string{m.Answer}
	}
	enc := json.NewEncoder(w)
	for i, word := range words {
		if m.StallAfter > 0 && i == m.StallAfter {
			<-r.Context().Done()
			return
		}
		if i > 0 {
			word = " " + word
		}
		_ = enc.Encode(map[string]any{
			"model":      m.Model,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
			"response":   word,
			"done":       false,
		})
		if hasFlusher {
			flusher.Flush()
		}
	}

	_ = enc.Encode(map[string]any{
		"model":             m.Model,
		"created_at":        time.Now().UTC().Format(time.RFC3339Nano),
		"response":          "",
		"done":              true,
		"done_reason":       "stop",
		"prompt_eval_count": 7,
		"eval_count":        len(words),
	})
	if hasFlusher {
		flusher.Flush()
	}
}
