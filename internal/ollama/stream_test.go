package ollama

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestReadStream_StopsAtDone(t *testing.T) {
	input := strings.Join([]string{
		`{"response":"a","done":false}`,
		``,
		`{"response":"b","done":false}`,
		`{"response":"","done":true,"done_reason":"stop","eval_count":2}`,
		`{"response":"ignored","done":false}`,
	}, "\n")

	var got []StreamChunk
	for chunk := range ReadStream(context.Background(), bufio.NewScanner(strings.NewReader(input))) {
		got = append(got, chunk)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if got[0].Response != "a" || got[1].Response != "b" {
		t.Errorf("unexpected chunk order: %+v", got)
	}
	last := got[2]
	if !last.Done || last.DoneReason != "stop" || last.EvalCount != 2 {
		t.Errorf("unexpected final chunk: %+v", last)
	}
}

func TestReadStream_MalformedLine(t *testing.T) {
	input := "{\"response\":\"a\"}\nnot json\n{\"response\":\"b\"}\n"

	var got []StreamChunk
	for chunk := range ReadStream(context.Background(), bufio.NewScanner(strings.NewReader(input))) {
		got = append(got, chunk)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if !errors.Is(got[1].Err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", got[1].Err)
	}
}

func TestReadStream_EOFBeforeDone(t *testing.T) {
	input := "{\"response\":\"a\"}\n{\"response\":\"b\"}\n"

	var got []StreamChunk
	for chunk := range ReadStream(context.Background(), bufio.NewScanner(strings.NewReader(input))) {
		got = append(got, chunk)
	}

	if len(got) != 3 {
		t.Fatalf("expected 2 chunks and an error, got %d", len(got))
	}
	if !errors.Is(got[2].Err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", got[2].Err)
	}
	if outcomeOf(got[2].Err) != OutcomeTransport {
		t.Errorf("expected transport outcome, got %q", outcomeOf(got[2].Err))
	}
}

func TestReadStream_CancelledContext(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "{\"response\":\"%d\"}\n", i)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadStream(ctx, bufio.NewScanner(strings.NewReader(sb.String())))
	<-ch
	cancel()

	// The reader must close the channel instead of blocking on a full buffer.
	for range ch {
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{fmt.Errorf("%w: deadline", ErrTimeout), OutcomeTimeout},
		{transportError(context.DeadlineExceeded), OutcomeTimeout},
		{&StatusError{StatusCode: 502}, OutcomeStatus},
		{fmt.Errorf("%w: eof", ErrMalformedResponse), OutcomeMalformed},
		{transportError(errors.New("connection refused")), OutcomeTransport},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
