package adapter

import (
	"context"
	"strings"

	"github.com/diivious/GHOSTS/internal/ollama"
)

// Generator is the part of the Ollama client the provider adapters need.
// *ollama.Client implements it.
type Generator interface {
	// GenerateText performs one blocking generate call.
	GenerateText(ctx context.Context, req *ollama.GenerateRequest) (*ollama.GenerateResponse, error)

	// GenerateStream performs a streaming generate call. The channel is closed
	// when the stream ends.
	GenerateStream(ctx context.Context, req *ollama.GenerateRequest) (<-chan ollama.StreamChunk, error)
}

// Turn is one provider-neutral conversation message.
type Turn struct {
	Role string
	Text string
}

// FlattenTurns converts a conversation into a single Ollama prompt.
// The last turn becomes the tail of the prompt; prior turns are prepended as
// "role: text" lines.
func FlattenTurns(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	if len(turns) == 1 {
		return turns[0].Text
	}

	var sb strings.Builder
	for _, t := range turns[:len(turns)-1] {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	sb.WriteString(turns[len(turns)-1].Text)
	return sb.String()
}
