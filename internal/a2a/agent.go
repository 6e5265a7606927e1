package a2a

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/diivious/GHOSTS/internal/adapter"
	"github.com/diivious/GHOSTS/internal/ollama"
)

// modelContextKey is the context key used to propagate a per-request model
// override from the HTTP layer into the agent's Run function.
type modelContextKey struct{}

// ContextWithModel returns a new context carrying the given Ollama model name.
// Call this in an HTTP middleware before the request reaches the A2A handler.
func ContextWithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, modelContextKey{}, model)
}

// modelFromContext retrieves the model injected by the HTTP middleware.
// Returns ("", false) when no model was injected.
func modelFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(modelContextKey{}).(string)
	return v, ok && v != ""
}

// AgentConfig holds the configuration for the Ollama-backed A2A agent.
type AgentConfig struct {
	// Name is the agent name exposed via A2A AgentCard.
	Name string
	// Description is exposed via A2A AgentCard.
	Description string
	// Generator is the pre-constructed Ollama client.
	Generator adapter.Generator
	// Model is the Ollama model used when the request carries no override.
	Model string
	// System is an optional system prompt sent with every generation.
	System string
	// Timeout bounds each invocation's Ollama stream.
	Timeout time.Duration
}

// New returns an agent.Agent whose Run logic streams an Ollama generation and
// converts the NDJSON chunks into session.Events that the ADK runner understands.
func New(cfg AgentConfig) (agent.Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("a2a agent: Name must not be empty")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("a2a agent: Generator must not be nil")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("a2a agent: Model must not be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("a2a agent: Timeout must be positive")
	}

	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Run:         runFunc(cfg),
	})
}

// runFunc returns the Run closure that drives one agent invocation.
func runFunc(cfg AgentConfig) func(agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
		return func(yield func(*session.Event, error) bool) {
			inv := invocation{
				id:      ctx.InvocationID(),
				branch:  ctx.Branch(),
				content: ctx.UserContent(),
			}
			streamEvents(ctx, cfg, inv, yield)
		}
	}
}

// invocation is the part of agent.InvocationContext the event loop reads.
type invocation struct {
	id      string
	branch  string
	content *genai.Content
}

// streamEvents generates for one invocation and yields a partial event per
// non-empty chunk, then a final event with the full text.
func streamEvents(ctx context.Context, cfg AgentConfig, inv invocation, yield func(*session.Event, error) bool) {
	newEvent := func(content *genai.Content, partial bool) *session.Event {
		ev := session.NewEvent(inv.id)
		ev.Author = cfg.Name
		ev.Branch = inv.branch
		ev.LLMResponse = model.LLMResponse{Content: content, Partial: partial}
		return ev
	}

	prompt := extractQuery(inv.content)
	if prompt == "" {
		yield(newEvent(textContent("(empty input)"), false), nil)
		return
	}

	modelName, ok := modelFromContext(ctx)
	if !ok {
		modelName = cfg.Model
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	streamCh, err := cfg.Generator.GenerateStream(ctx, &ollama.GenerateRequest{
		Model:  modelName,
		Prompt: prompt,
		System: cfg.System,
	})
	if err != nil {
		yield(nil, fmt.Errorf("ollama streaming request failed: %w", err))
		return
	}

	var fullText strings.Builder
	for chunk := range streamCh {
		if chunk.Err != nil {
			yield(nil, fmt.Errorf("ollama stream error: %w", chunk.Err))
			return
		}
		if chunk.Response == "" {
			continue
		}
		fullText.WriteString(chunk.Response)

		// Partial events let streaming A2A clients see tokens as they arrive.
		if !yield(newEvent(textContent(chunk.Response), true), nil) {
			return
		}
	}

	// The final non-partial event makes IsFinalResponse() true so the
	// runner closes the invocation.
	yield(newEvent(textContent(fullText.String()), false), nil)
}

// extractQuery pulls the plain-text content from the genai.Content that ADK
// puts in the InvocationContext when the caller sends a message.
func extractQuery(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// textContent wraps a string into a *genai.Content.
func textContent(text string) *genai.Content {
	return &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{Text: text}},
	}
}
