package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/diivious/GHOSTS/internal/adapter/anthropic"
	"github.com/diivious/GHOSTS/internal/adapter/gemini"
	"github.com/diivious/GHOSTS/internal/adapter/openai"
	"github.com/diivious/GHOSTS/internal/config"
	"github.com/diivious/GHOSTS/internal/metrics"
	"github.com/diivious/GHOSTS/internal/ollama"
)

// Server is the gateway HTTP server.
type Server struct {
	httpServer *http.Server
	client     *ollama.Client
}

// New constructs a Server from the given config. The Ollama client it builds
// reports to a Prometheus registry served on GET /metrics.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	recorder := metrics.NewGenerate()
	client := ollama.NewClient(ollama.Config{
		Endpoint: cfg.OllamaAPIURL,
		Timeout:  cfg.OllamaTimeout,
		ProxyURL: cfg.OllamaProxyURL,
		APIKey:   cfg.OllamaAPIKey,
	}, logger).WithRecorder(recorder)

	oaHandler := openai.NewHandler(client, cfg.OllamaModel, cfg.OllamaTimeout, logger)
	anHandler := anthropic.NewHandler(client, cfg.OllamaModel, cfg.OllamaTimeout, logger)
	gmHandler := gemini.NewHandler(client, cfg.OllamaModel, cfg.OllamaTimeout, logger)

	mux := http.NewServeMux()

	// OpenAI
	mux.Handle("POST /v1/chat/completions", oaHandler)

	// Anthropic
	mux.Handle("POST /v1/messages", anHandler)

	// Gemini: ServeMux wildcards cannot be mixed with literal suffixes in the same
	// segment (e.g. "{model}:generateContent" is invalid). Use a prefix catch-all
	// and dispatch to blocking vs streaming by path suffix inside the handler.
	mux.HandleFunc("POST /v1beta/models/", gmHandler.Dispatch)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":   "ok",
			"endpoint": client.Endpoint(),
		})
	})
	mux.Handle("GET /metrics", recorder.Handler())

	var handler http.Handler = mux
	handler = loggingMiddleware(logger, handler)
	handler = recoveryMiddleware(logger, handler)

	return &Server{
		client: client,
		httpServer: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: cfg.OllamaTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Client returns the Ollama client shared by all adapters.
func (s *Server) Client() *ollama.Client {
	return s.client
}

// Start begins listening and blocks until the server is stopped.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler (for use in tests with httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
