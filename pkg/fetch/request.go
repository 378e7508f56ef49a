package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result is a completed fetch: the JSON value decoded from the full body.
// Numbers in Value are json.Number.
type Result struct {
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Value      any       `json:"value"`
	Raw        []byte    `json:"-"`
	Chunks     int       `json:"chunks"`
	Bytes      int       `json:"bytes"`
	ReceivedAt time.Time `json:"received_at"`
}

// Request is a single GET. It runs at most once and never returns to StateIdle.
type Request struct {
	url      string
	headers  map[string]string
	opener   Opener
	timeout  time.Duration
	observer Observer
	log      Logger

	mu       sync.Mutex
	state    State
	executed bool
}

// URL returns the target of the request.
func (r *Request) URL() string { return r.url }

// State returns the current lifecycle state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Do runs the request lifecycle: connect, receive every chunk, then decode.
func (r *Request) Do(ctx context.Context) (*Result, error) {
	if !r.claim() {
		return nil, ErrRequestUsed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.transition(StateConnecting)
	stream, err := r.opener.Open(ctx, r.url, r.headers)
	if err != nil {
		return nil, r.fail(&FetchError{Kind: KindTransport, URL: r.url, Err: fmt.Errorf("connect: %w", err)})
	}
	defer stream.Close()

	status := stream.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		r.log.WarnObj("fetch received non-2xx status", "fetch_status", map[string]any{
			"url":         r.url,
			"status_code": status,
		})
	}

	r.transition(StateReceiving)
	buf := &responseBuffer{}
	if err := r.receive(ctx, stream, buf); err != nil {
		buf.discard()
		return nil, r.fail(&FetchError{Kind: KindTransport, URL: r.url, StatusCode: status, Err: err})
	}

	buf.seal()
	raw, err := buf.bytes()
	if err != nil {
		return nil, r.fail(&FetchError{Kind: KindTransport, URL: r.url, StatusCode: status, Err: err})
	}

	value, err := decodeJSON(raw)
	if err != nil {
		return nil, r.fail(&FetchError{Kind: KindMalformedPayload, URL: r.url, StatusCode: status, Raw: raw, Err: err})
	}

	r.transition(StateCompleted)
	r.log.DebugObj("fetch completed", "fetch_result", map[string]any{
		"url":         r.url,
		"status_code": status,
		"chunks":      buf.chunks,
		"bytes":       buf.len(),
	})
	return &Result{
		URL:        r.url,
		StatusCode: status,
		Value:      value,
		Raw:        raw,
		Chunks:     buf.chunks,
		Bytes:      buf.len(),
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// receive appends chunks until end-of-data. Cancellation is checked between chunks.
func (r *Request) receive(ctx context.Context, stream Stream, buf *responseBuffer) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("receive interrupted: %w", err)
		}

		chunk, err := stream.Next()
		if len(chunk) > 0 {
			buf.append(chunk)
			r.observer.Chunk(r.url, buf.chunks-1, len(chunk))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
	}
}

// decodeJSON parses exactly one JSON document. Numbers stay json.Number so their
// text survives re-encoding.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid character after top-level value at offset %d", dec.InputOffset())
	}
	return value, nil
}

func (r *Request) claim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.executed {
		return false
	}
	r.executed = true
	return true
}

func (r *Request) transition(to State) {
	r.mu.Lock()
	from := r.state
	r.state = to
	r.mu.Unlock()
	r.observer.Transition(r.url, from, to)
}

func (r *Request) fail(fe *FetchError) error {
	r.transition(StateFailed)
	r.log.WarnObj("fetch failed", "fetch_error", map[string]any{
		"url":         fe.URL,
		"kind":        fe.Kind.String(),
		"status_code": fe.StatusCode,
		"error":       fe.Err.Error(),
	})
	return fe
}
