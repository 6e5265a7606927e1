package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diivious/GHOSTS/internal/ollama"
)

var (
	ErrMalformedBody = errors.New("malformed request body")
	ErrEmptyPrompt   = errors.New("prompt must not be empty")
)

type jsonError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := jsonError{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	_ = json.NewEncoder(w).Encode(body)
}

// UpstreamStatus is the gateway status for an Ollama client error:
// 504 for timeouts, 502 for everything else.
func UpstreamStatus(err error) int {
	if errors.Is(err, ollama.ErrTimeout) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// WriteUpstreamError maps an Ollama client error to a gateway response.
func WriteUpstreamError(w http.ResponseWriter, err error) {
	var statusErr *ollama.StatusError
	switch {
	case errors.Is(err, ollama.ErrTimeout):
		WriteJSONError(w, UpstreamStatus(err), "upstream timeout")
	case errors.As(err, &statusErr):
		WriteJSONError(w, UpstreamStatus(err), "upstream error: "+statusErr.Error())
	default:
		WriteJSONError(w, UpstreamStatus(err), "upstream error: "+err.Error())
	}
}
