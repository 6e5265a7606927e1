package openai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/diivious/GHOSTS/internal/adapter"
	apierrors "github.com/diivious/GHOSTS/internal/errors"
	"github.com/diivious/GHOSTS/internal/httputil"
)

// Handler implements the OpenAI chat completions endpoint.
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

// ServeHTTP handles POST /v1/chat/completions.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	genReq, streaming, err := ToGenerateRequest(r, h.defaultModel)
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
		if err := WriteStreamingResponse(w, stream, genReq.Model); err != nil {
			h.logger.Warn("stream to client ended early", "provider", "openai", "model", genReq.Model, "error", err)
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
