package fetch

import "context"

// Opener establishes the connection for a request and returns its body stream.
type Opener interface {
	Open(ctx context.Context, url string, headers map[string]string) (Stream, error)
}

// Stream delivers a response body as ordered chunks.
// Next returns io.EOF once the body is complete.
type Stream interface {
	StatusCode() int
	Next() ([]byte, error)
	Close() error
}

// Observer is notified of lifecycle transitions and chunk arrivals.
type Observer interface {
	Transition(url string, from, to State)
	Chunk(url string, index, size int)
}

// Logger defines the logging surface the fetcher relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

type noopObserver struct{}

func (noopObserver) Transition(string, State, State) {}
func (noopObserver) Chunk(string, int, int)          {}
