package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/diivious/GHOSTS/internal/adapter"
	"github.com/diivious/GHOSTS/internal/httputil"
	"github.com/diivious/GHOSTS/internal/ollama"
)

// ToGenerateRequest converts an Anthropic Messages request to an Ollama generate request.
func ToGenerateRequest(r *http.Request, defaultModel string) (*ollama.GenerateRequest, bool, error) {
	var req MessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, false, fmt.Errorf("decode body: %w", err)
	}
	if len(req.Messages) == 0 {
		return nil, false, fmt.Errorf("messages must not be empty")
	}

	turns := make([]adapter.Turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		turns = append(turns, adapter.Turn{Role: m.Role, Text: string(m.Content)})
	}

	genReq := &ollama.GenerateRequest{
		Model:  httputil.ResolveModel(r, req.Model, defaultModel),
		Prompt: adapter.FlattenTurns(turns),
		System: req.System,
	}
	opts := map[string]any{}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if len(opts) > 0 {
		genReq.Options = opts
	}
	return genReq, req.Stream, nil
}

func stopReason(doneReason string) string {
	if doneReason == "length" {
		return "max_tokens"
	}
	return "end_turn"
}

// WriteBlockingResponse encodes an Ollama response as an Anthropic MessagesResponse.
func WriteBlockingResponse(w http.ResponseWriter, resp *ollama.GenerateResponse, model string) error {
	out := MessagesResponse{
		ID:         messageID(),
		Type:       "message",
		Role:       "assistant",
		Content:    []Content{{Type: "text", Text: resp.Response}},
		Model:      model,
		StopReason: stopReason(resp.DoneReason),
		Usage: Usage{
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(out)
}

// WriteStreamingResponse encodes Ollama stream chunks as Anthropic SSE events.
func WriteStreamingResponse(w http.ResponseWriter, stream <-chan ollama.StreamChunk, model string) error {
	startEvt := map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":      messageID(),
			"type":    "message",
			"role":    "assistant",
			"model":   model,
			"content": []any{},
		},
	}
	if err := writeSSEEvent(w, "message_start", startEvt); err != nil {
		return err
	}

	blockStart := map[string]any{
		"type":          "content_block_start",
		"index":         0,
		"content_block": Content{Type: "text", Text: ""},
	}
	if err := writeSSEEvent(w, "content_block_start", blockStart); err != nil {
		return err
	}

	reason := "end_turn"
	var outputTokens int
	for ev := range stream {
		if ev.Err != nil {
			_ = writeSSEEvent(w, "error", map[string]any{
				"type":  "error",
				"error": map[string]any{"type": errorType(ev.Err), "message": ev.Err.Error()},
			})
			return ev.Err
		}
		if ev.Done {
			reason = stopReason(ev.DoneReason)
			outputTokens = ev.EvalCount
		}
		if ev.Response == "" {
			continue
		}

		delta := StreamEvent{
			Type:  "content_block_delta",
			Index: 0,
			Delta: &Delta{Type: "text_delta", Text: ev.Response},
		}
		if err := writeSSEEvent(w, "content_block_delta", delta); err != nil {
			return err
		}
	}

	if err := writeSSEEvent(w, "content_block_stop", map[string]any{"type": "content_block_stop", "index": 0}); err != nil {
		return err
	}
	msgDelta := map[string]any{
		"type":  "message_delta",
		"delta": map[string]any{"stop_reason": reason, "stop_sequence": nil},
		"usage": map[string]any{"output_tokens": outputTokens},
	}
	if err := writeSSEEvent(w, "message_delta", msgDelta); err != nil {
		return err
	}
	return writeSSEEvent(w, "message_stop", map[string]any{"type": "message_stop"})
}

// errorType picks the Anthropic error type for a failed upstream stream.
func errorType(err error) string {
	if errors.Is(err, ollama.ErrTimeout) {
		return "timeout_error"
	}
	return "api_error"
}

func writeSSEEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func messageID() string {
	return fmt.Sprintf("msg_%d", time.Now().UnixNano())
}
