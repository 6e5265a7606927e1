package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const generatePath = "/api/generate"

// Config holds the endpoint settings a Client is bound to.
type Config struct {
	// Endpoint is the Ollama generate URL, e.g. "http://localhost:11434/api/generate".
	// A bare host is accepted; the "/api/generate" suffix is appended when missing.
	Endpoint string
	// Timeout bounds one blocking generate call, including reading the body.
	Timeout time.Duration
	// ProxyURL routes requests through an HTTP proxy. Empty uses the environment proxy.
	ProxyURL string
	// APIKey is sent as a Bearer token when set, for Ollama hosts behind an auth proxy.
	APIKey string
}

// Recorder receives the outcome and latency of every generate call.
type Recorder interface {
	ObserveGenerate(outcome string, elapsed time.Duration)
}

// Client sends generate requests to an Ollama instance.
// A Client is safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	// streamTransport is used by streaming requests (no timeout, but same proxy).
	streamTransport http.RoundTripper
	logger          *slog.Logger
	recorder        Recorder
}

// NewClient constructs a Client from cfg. A nil logger discards log output.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.HasSuffix(endpoint, generatePath) {
		endpoint += generatePath
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	transport := &http.Transport{}
	if cfg.ProxyURL != "" {
		parsed, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		} else {
			logger.Warn("ignoring invalid proxy url", "proxy_url", cfg.ProxyURL, "error", err)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		streamTransport: transport,
		logger:          logger.With("component", "ollama"),
	}
}

// WithRecorder attaches r to the client and returns the client.
func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	return c
}

// Endpoint returns the resolved generate URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Generate sends prompt to model and returns the generated text.
// ok is false when no usable result was produced: timeout, transport fault,
// non-200 status or an unparsable body. The failure kind is only logged.
// ("", true) is a valid, empty completion.
func (c *Client) Generate(ctx context.Context, prompt, model string) (text string, ok bool) {
	resp, err := c.GenerateText(ctx, &GenerateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", false
	}
	return resp.Response, true
}

// GenerateText performs one blocking generate exchange and returns the parsed
// response. Stream is always sent as false. Errors match ErrTimeout,
// ErrUpstreamStatus (as *StatusError) or ErrMalformedResponse via errors.Is;
// anything else is a transport fault.
func (c *Client) GenerateText(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Info("sending request to ollama model", "model", req.Model)
	c.logger.Info("payload sent to ollama", "payload", string(body))

	start := time.Now()
	result, raw, err := c.do(ctx, body)
	elapsed := time.Since(start)
	c.observe(err, elapsed)

	if err != nil {
		c.logFailure(err, req.Model, elapsed)
		return nil, err
	}
	c.logger.Info("response received from ollama",
		"model", req.Model,
		"elapsed", fmt.Sprintf("%.2fs", elapsed.Seconds()),
		"response", raw,
	)
	return result, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*GenerateResponse, string, error) {
	httpReq, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, string(raw), &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var result GenerateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, string(raw), fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &result, string(raw), nil
}

// GenerateStream sends a stream=true generate request and returns a channel of
// NDJSON chunks. The channel is closed after the chunk with Done set or after
// a chunk carrying Err. A stream cut short by ctx, a read error or an early
// EOF always ends with an Err chunk while the consumer keeps receiving.
func (c *Client) GenerateStream(ctx context.Context, req *GenerateRequest) (<-chan StreamChunk, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/x-ndjson")

	c.logger.Info("sending streaming request to ollama model", "model", req.Model)

	// Use a client without timeout for streaming (context carries deadline),
	// but reuse the same transport so the proxy setting is preserved.
	streamClient := &http.Client{Transport: c.streamTransport}
	start := time.Now()
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		err = transportError(err)
		c.observe(err, time.Since(start))
		c.logFailure(err, req.Model, time.Since(start))
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		err := &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		c.observe(err, time.Since(start))
		c.logFailure(err, req.Model, time.Since(start))
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	ch := make(chan StreamChunk, 16)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		var streamErr error
		for chunk := range ReadStream(ctx, scanner) {
			if chunk.Err != nil {
				streamErr = chunk.Err
				sendLast(ctx, ch, chunk)
				break
			}
			if !send(ctx, ch, chunk) {
				streamErr = transportError(ctx.Err())
				sendLast(ctx, ch, StreamChunk{Err: streamErr})
				break
			}
		}
		elapsed := time.Since(start)
		c.observe(streamErr, elapsed)
		if streamErr != nil {
			c.logFailure(streamErr, req.Model, elapsed)
			return
		}
		c.logger.Info("stream from ollama finished",
			"model", req.Model,
			"elapsed", fmt.Sprintf("%.2fs", elapsed.Seconds()),
		)
	}()
	return ch, nil
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return httpReq, nil
}

func (c *Client) observe(err error, elapsed time.Duration) {
	if c.recorder != nil {
		c.recorder.ObserveGenerate(outcomeOf(err), elapsed)
	}
}

func (c *Client) logFailure(err error, model string, elapsed time.Duration) {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrTimeout):
		c.logger.Warn("ollama request timed out", "model", model, "timeout", c.timeout.String())
	case errors.As(err, &statusErr):
		c.logger.Error("invalid response from ollama",
			"model", model,
			"status", statusErr.StatusCode,
			"body", statusErr.Body,
			"elapsed", elapsed.String(),
		)
	default:
		c.logger.Error("error while using ollama", "model", model, "error", err, "elapsed", elapsed.String())
	}
}
