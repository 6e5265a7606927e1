package anthropic

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diivious/GHOSTS/internal/ollama"
)

func TestWriteStreamingResponse_ErrorEvent(t *testing.T) {
	ch := make(chan ollama.StreamChunk, 2)
	ch <- ollama.StreamChunk{GenerateResponse: ollama.GenerateResponse{Response: "Hi"}}
	ch <- ollama.StreamChunk{Err: errors.New("connection reset")}
	close(ch)

	rec := httptest.NewRecorder()
	if err := WriteStreamingResponse(rec, ch, "llama3"); err == nil {
		t.Fatal("expected the stream error to be returned")
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: error\n") || !strings.Contains(body, `"type":"api_error"`) {
		t.Errorf("expected an error event, got %q", body)
	}
	if strings.Contains(body, "message_stop") {
		t.Errorf("failed stream must not send message_stop: %q", body)
	}
}

func TestErrorType(t *testing.T) {
	if got := errorType(ollama.ErrTimeout); got != "timeout_error" {
		t.Errorf("errorType(timeout) = %q", got)
	}
	if got := errorType(errors.New("boom")); got != "api_error" {
		t.Errorf("errorType(other) = %q", got)
	}
}
