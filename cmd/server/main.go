package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/volcengine/veadk-go/apps"
	"github.com/volcengine/veadk-go/apps/a2a_app"
	"google.golang.org/adk/agent"

	"github.com/diivious/GHOSTS/internal/a2a"
	"github.com/diivious/GHOSTS/internal/config"
	"github.com/diivious/GHOSTS/internal/httputil"
	"github.com/diivious/GHOSTS/internal/proxy"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg, os.Stderr)

	logger.Info("starting ollama gateway",
		"listen", cfg.ListenAddr,
		"ollama_api_url", cfg.OllamaAPIURL,
		"ollama_model", cfg.OllamaModel,
		"ollama_timeout", cfg.OllamaTimeout.String(),
		"a2a_enabled", cfg.A2AEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Always start the gateway.
	srv := proxy.New(cfg, logger)
	proxyErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			proxyErr <- err
		}
	}()

	// Optionally start the A2A server.
	a2aErr := make(chan error, 1)
	if cfg.A2AEnabled {
		ollamaAgent, err := a2a.New(a2a.AgentConfig{
			Name:        cfg.AgentName,
			Description: cfg.AgentDesc,
			Generator:   srv.Client(),
			Model:       cfg.OllamaModel,
			Timeout:     cfg.OllamaTimeout,
		})
		if err != nil {
			logger.Error("failed to create A2A agent", "error", err)
			os.Exit(1)
		}

		logger.Info("starting A2A server", "port", cfg.A2APort, "agent_name", cfg.AgentName)

		// Wrap the standard A2A app to inject an HTTP middleware that reads the
		// model override header into the request context before the JSON-RPC
		// handler sees the request.
		inner := a2a_app.NewAgentkitA2AServerApp(
			apps.DefaultApiConfig().SetPort(cfg.A2APort),
		)
		wrapped := &modelMiddlewareApp{BasicApp: inner}

		go func() {
			if err := wrapped.Run(ctx, &apps.RunConfig{
				AgentLoader: agent.NewSingleLoader(ollamaAgent),
			}); err != nil {
				a2aErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Error("gateway shutdown error", "error", err)
		}
	case err := <-proxyErr:
		logger.Error("gateway server error", "error", err)
		os.Exit(1)
	case err := <-a2aErr:
		logger.Error("A2A server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// modelMiddlewareApp wraps a BasicApp and installs an HTTP middleware on the
// Gorilla mux router that copies the X-Ollama-Model header of every incoming
// request into the request context via a2a.ContextWithModel.
type modelMiddlewareApp struct {
	apps.BasicApp
}

// Run overrides the embedded Run so that apps.Run receives `w` as the app
// argument. Without this, the embedded Run calls apps.Run with the inner app,
// meaning apps.Run would invoke SetupRouters on the inner app and our
// middleware override would never be registered.
func (w *modelMiddlewareApp) Run(ctx context.Context, config *apps.RunConfig) error {
	return apps.Run(ctx, config, w)
}

func (w *modelMiddlewareApp) SetupRouters(router *mux.Router, config *apps.RunConfig) error {
	if err := w.BasicApp.SetupRouters(router, config); err != nil {
		return err
	}
	router.Use(modelHeaderMiddleware)
	return nil
}

// modelHeaderMiddleware is a Gorilla mux middleware that stores the
// X-Ollama-Model header in the request context.
func modelHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m := strings.TrimSpace(r.Header.Get(httputil.ModelHeader)); m != "" {
			r = r.WithContext(a2a.ContextWithModel(r.Context(), m))
		}
		next.ServeHTTP(w, r)
	})
}
