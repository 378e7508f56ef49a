package fetch

import (
	"context"
	"errors"
	"io"
	"sync"
)

var errConnReset = errors.New("connection reset by peer")

// chunkOpener serves a fixed chunk sequence, optionally failing after failAfter chunks.
type chunkOpener struct {
	chunks    []string
	status    int
	openErr   error
	failAfter int
	failErr   error
	closed    bool
	mu        sync.Mutex
}

func (o *chunkOpener) Open(_ context.Context, _ string, _ map[string]string) (Stream, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	status := o.status
	if status == 0 {
		status = 200
	}
	return &chunkStream{opener: o, status: status}, nil
}

type chunkStream struct {
	opener *chunkOpener
	status int
	next   int
}

func (s *chunkStream) StatusCode() int { return s.status }

func (s *chunkStream) Next() ([]byte, error) {
	o := s.opener
	if o.failErr != nil && s.next == o.failAfter {
		return nil, o.failErr
	}
	if s.next >= len(o.chunks) {
		return nil, io.EOF
	}
	chunk := []byte(o.chunks[s.next])
	s.next++
	return chunk, nil
}

func (s *chunkStream) Close() error {
	s.opener.mu.Lock()
	s.opener.closed = true
	s.opener.mu.Unlock()
	return nil
}

// recordingObserver captures transitions and chunk sizes.
type recordingObserver struct {
	mu          sync.Mutex
	transitions [][2]State
	sizes       []int
}

func (r *recordingObserver) Transition(_ string, from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]State{from, to})
}

func (r *recordingObserver) Chunk(_ string, _ int, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, size)
}
