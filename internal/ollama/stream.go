package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// maxLineSize bounds one NDJSON line of a streaming response.
const maxLineSize = 2 * 1024 * 1024

// ReadStream reads NDJSON lines from a scanner and sends StreamChunks to the
// returned channel. The channel is closed after a chunk with Done set or after
// a chunk carrying Err. A stream that stops before Done, including one cut
// short by ctx, ends with an Err chunk.
func ReadStream(ctx context.Context, scanner *bufio.Scanner) <-chan StreamChunk {
	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk StreamChunk
			if err := json.Unmarshal(line, &chunk.GenerateResponse); err != nil {
				sendLast(ctx, ch, StreamChunk{Err: fmt.Errorf("%w: %w", ErrMalformedResponse, err)})
				return
			}
			if !send(ctx, ch, chunk) {
				sendLast(ctx, ch, StreamChunk{Err: transportError(ctx.Err())})
				return
			}
			if chunk.Done {
				return
			}
		}
		switch err := scanner.Err(); {
		case ctx.Err() != nil:
			sendLast(ctx, ch, StreamChunk{Err: transportError(ctx.Err())})
		case err != nil:
			sendLast(ctx, ch, StreamChunk{Err: transportError(err)})
		default:
			sendLast(ctx, ch, StreamChunk{Err: transportError(io.ErrUnexpectedEOF)})
		}
	}()
	return ch
}

// send delivers chunk unless ctx is done first.
func send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// sendLast delivers the terminal chunk of a stream. Once ctx is done it only
// succeeds while the buffer has room, so an abandoned channel cannot block
// the reader.
func sendLast(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) {
	select {
	case ch <- chunk:
		return
	case <-ctx.Done():
	}
	select {
	case ch <- chunk:
	default:
	}
}
