package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/diivious/GHOSTS/internal/adapter"
	apierrors "github.com/diivious/GHOSTS/internal/errors"
	"github.com/diivious/GHOSTS/internal/httputil"
	"github.com/diivious/GHOSTS/internal/ollama"
)

// ToGenerateRequest converts an OpenAI chat completions request to an Ollama
// generate request. The bool reports whether the caller asked for streaming.
func ToGenerateRequest(r *http.Request, defaultModel string) (*ollama.GenerateRequest, bool, error) {
	var req ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, false, fmt.Errorf("decode body: %w", err)
	}
	if len(req.Messages) == 0 {
		return nil, false, fmt.Errorf("messages must not be empty")
	}

	var system []string
	turns := make([]adapter.Turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" || m.Role == "developer" {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, adapter.Turn{Role: m.Role, Text: m.Content})
	}
	if len(turns) == 0 {
		return nil, false, fmt.Errorf("messages must contain at least one non-system message")
	}

	genReq := &ollama.GenerateRequest{
		Model:  httputil.ResolveModel(r, req.Model, defaultModel),
		Prompt: adapter.FlattenTurns(turns),
		System: strings.Join(system, "\n"),
	}
	genReq.Options = options(req)
	return genReq, req.Stream, nil
}

func options(req ChatCompletionRequest) map[string]any {
	opts := map[string]any{}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func finishReason(doneReason string) string {
	if doneReason == "length" {
		return "length"
	}
	return "stop"
}

// WriteBlockingResponse encodes an Ollama response as an OpenAI ChatCompletionResponse.
func WriteBlockingResponse(w http.ResponseWriter, resp *ollama.GenerateResponse, model string) error {
	out := ChatCompletionResponse{
		ID:      completionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: "assistant", Content: resp.Response},
				FinishReason: finishReason(resp.DoneReason),
			},
		},
		Usage: Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(out)
}

// WriteStreamingResponse encodes Ollama stream chunks as OpenAI SSE chunks.
func WriteStreamingResponse(w http.ResponseWriter, stream <-chan ollama.StreamChunk, model string) error {
	id := completionID()
	for ev := range stream {
		if ev.Err != nil {
			writeStreamError(w, ev.Err)
			return ev.Err
		}
		if ev.Response == "" && !ev.Done {
			continue
		}

		choice := StreamChoice{Index: 0, Delta: Delta{Content: ev.Response}}
		if ev.Done {
			reason := finishReason(ev.DoneReason)
			choice.FinishReason = &reason
		}
		chunk := StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []StreamChoice{choice},
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("marshal chunk: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
	_, err := fmt.Fprintf(w, "data: [DONE]\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return err
}

// writeStreamError ends a broken stream with an error object instead of [DONE].
func writeStreamError(w http.ResponseWriter, err error) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": err.Error(),
			"type":    "upstream_error",
			"code":    apierrors.UpstreamStatus(err),
		},
	})
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func completionID() string {
	return fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
}
