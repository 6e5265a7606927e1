package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrTimeout           = errors.New("ollama request timed out")
	ErrUpstreamStatus    = errors.New("ollama returned non-200 response")
	ErrMalformedResponse = errors.New("ollama returned malformed response body")
)

// Outcome labels reported to a Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeTimeout   = "timeout"
	OutcomeStatus    = "status"
	OutcomeMalformed = "malformed"
	OutcomeTransport = "transport"
)

// StatusError is returned when Ollama answers with anything other than 200.
// Body holds the raw response text.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }

// transportError wraps a fault raised by the HTTP transport, tagging
// deadline and net timeouts with ErrTimeout.
func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("ollama request: %w", err)
}

// outcomeOf maps an error returned by GenerateText to its Recorder label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrUpstreamStatus):
		return OutcomeStatus
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeMalformed
	default:
		return OutcomeTransport
	}
}
