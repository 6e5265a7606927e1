package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/diivious/GHOSTS/internal/adapter"
	apierrors "github.com/diivious/GHOSTS/internal/errors"
	"github.com/diivious/GHOSTS/internal/httputil"
	"github.com/diivious/GHOSTS/internal/ollama"
)

// ToGenerateRequest converts a Gemini generateContent request to an Ollama
// generate request. pathModel is the {model} segment of the request URL.
func ToGenerateRequest(r *http.Request, pathModel, defaultModel string) (*ollama.GenerateRequest, error) {
	var req GenerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("contents must not be empty")
	}

	turns := make([]adapter.Turn, 0, len(req.Contents))
	for _, c := range req.Contents {
		role := c.Role
		if role == "model" {
			role = "assistant"
		}
		turns = append(turns, adapter.Turn{Role: role, Text: joinParts(c.Parts)})
	}

	genReq := &ollama.GenerateRequest{
		Model:  httputil.ResolveModel(r, pathModel, defaultModel),
		Prompt: adapter.FlattenTurns(turns),
	}
	if req.SystemInstruction != nil {
		genReq.System = joinParts(req.SystemInstruction.Parts)
	}
	if gc := req.GenerationConfig; gc != nil {
		opts := map[string]any{}
		if gc.Temperature != nil {
			opts["temperature"] = *gc.Temperature
		}
		if gc.MaxOutputTokens > 0 {
			opts["num_predict"] = gc.MaxOutputTokens
		}
		if len(opts) > 0 {
			genReq.Options = opts
		}
	}
	return genReq, nil
}

// modelFromPath extracts {model} from /v1beta/models/{model}:{method}.
func modelFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1beta/models/")
	if !ok {
		return ""
	}
	// Ollama tags contain colons too, so the method is after the last one.
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		return rest[:i]
	}
	return rest
}

func joinParts(parts []Part) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "")
}

func finishReason(doneReason string) string {
	if doneReason == "length" {
		return "MAX_TOKENS"
	}
	return "STOP"
}

// WriteBlockingResponse encodes an Ollama response as a Gemini GenerateContentResponse.
func WriteBlockingResponse(w http.ResponseWriter, resp *ollama.GenerateResponse, model string) error {
	out := GenerateContentResponse{
		Candidates: []Candidate{
			{
				Content: Content{
					Role:  "model",
					Parts: []Part{{Text: resp.Response}},
				},
				FinishReason: finishReason(resp.DoneReason),
				Index:        0,
			},
		},
		UsageMetadata: UsageMetadata{
			PromptTokenCount:     resp.PromptEvalCount,
			CandidatesTokenCount: resp.EvalCount,
			TotalTokenCount:      resp.PromptEvalCount + resp.EvalCount,
		},
		ModelVersion: model,
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(out)
}

// WriteStreamingResponse encodes Ollama stream chunks as Gemini SSE JSON payloads.
func WriteStreamingResponse(w http.ResponseWriter, stream <-chan ollama.StreamChunk) error {
	for ev := range stream {
		if ev.Err != nil {
			writeStreamError(w, ev.Err)
			return ev.Err
		}
		if ev.Response == "" && !ev.Done {
			continue
		}

		chunk := StreamResponse{
			Candidates: []Candidate{
				{
					Content: Content{
						Role:  "model",
						Parts: []Part{{Text: ev.Response}},
					},
					Index: 0,
				},
			},
		}
		if ev.Done {
			chunk.Candidates[0].FinishReason = finishReason(ev.DoneReason)
			chunk.UsageMetadata = &UsageMetadata{
				PromptTokenCount:     ev.PromptEvalCount,
				CandidatesTokenCount: ev.EvalCount,
				TotalTokenCount:      ev.PromptEvalCount + ev.EvalCount,
			}
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
	return nil
}

// writeStreamError sends a Google API error payload as the last SSE event.
func writeStreamError(w http.ResponseWriter, err error) {
	code := apierrors.UpstreamStatus(err)
	status := "UNAVAILABLE"
	if code == http.StatusGatewayTimeout {
		status = "DEADLINE_EXCEEDED"
	}
	data, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": code, "message": err.Error(), "status": status},
	})
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
