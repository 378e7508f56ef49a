package httpclient

import (
	"context"
	"io"
)

// StreamResponse is a response whose body has not been read yet.
// Callers own Body and must close it.
type StreamResponse interface {
	StatusCode() int
	Body() io.ReadCloser
}

// StreamClient issues GET requests that hand back the unread body.
type StreamClient interface {
	Stream(ctx context.Context, url string, headers map[string]string) (StreamResponse, error)
}
