package gemini

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/diivious/GHOSTS/internal/adapter"
	apierrors "github.com/diivious/GHOSTS/internal/errors"
	"github.com/diivious/GHOSTS/internal/httputil"
)

// Handler implements the Gemini generateContent / streamGenerateContent endpoints.
type Handler struct {
	client       adapter.Generator
	defaultModel string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(client adapter.Generator, defaultModel string, timeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{client: client, defaultModel: defaultModel, timeout: timeout, logger: logger}
}

// serveHTTP handles both generateContent and streamGenerateContent.
func (h *Handler) serveHTTP(w http.ResponseWriter, r *http.Request, streaming bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	genReq, err := ToGenerateRequest(r, modelFromPath(r.URL.Path), h.defaultModel)
	if err != nil {
		apierrors.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if streaming {
		stream, err := h.client.GenerateStream(ctx, genReq)
		if err != nil {
			apierrors.WriteUpstreamError(w, err)
			return
		}
		httputil.SetSSEHeaders(w)
		if err := WriteStreamingResponse(w, stream); err != nil {
			h.logger.Warn("stream to client ended early", "provider", "gemini", "model", genReq.Model, "error", err)
		}
		return
	}

	resp, err := h.client.GenerateText(ctx, genReq)
	if err != nil {
		apierrors.WriteUpstreamError(w, err)
		return
	}
	if err := WriteBlockingResponse(w, resp, genReq.Model); err != nil {
		apierrors.WriteJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// Dispatch routes to blocking or streaming based on the URL path suffix.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, ":streamGenerateContent"):
		h.serveHTTP(w, r, true)
	case strings.HasSuffix(path, ":generateContent"):
		h.serveHTTP(w, r, false)
	default:
		http.NotFound(w, r)
	}
}
