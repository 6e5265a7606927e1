package ollama

// GenerateRequest is sent to POST /api/generate.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	// System overrides the model's system prompt. Only the gateway adapters set it.
	System  string         `json:"system,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// GenerateResponse is the Ollama response body for stream=false, and also the
// shape of every NDJSON line for stream=true.
type GenerateResponse struct {
	Model      string `json:"model"`
	CreatedAt  string `json:"created_at"`
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	// Durations are reported by Ollama in nanoseconds.
	TotalDuration      int64 `json:"total_duration,omitempty"`
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}

// StreamChunk is one NDJSON line of a streaming generate response.
type StreamChunk struct {
	GenerateResponse
	// Err is set when the Go stream reader itself encounters an error.
	Err error `json:"-"`
}
