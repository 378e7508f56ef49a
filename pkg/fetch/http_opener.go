package fetch

import (
	"context"
	"io"

	"github.com/samvad-hq/samvad-rail-feed/pkg/httpclient"
)

// DefaultChunkSize is the largest chunk read from an HTTP body in one step.
const DefaultChunkSize = 32 * 1024

// httpOpener adapts an httpclient.StreamClient to Opener.
type httpOpener struct {
	client    httpclient.StreamClient
	chunkSize int
}

// NewHTTPOpener builds an Opener over client. A nil client uses resty without a client timeout.
func NewHTTPOpener(client httpclient.StreamClient, chunkSize int) Opener {
	if client == nil {
		client = httpclient.NewRestyClient(0, "")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &httpOpener{client: client, chunkSize: chunkSize}
}

func (o *httpOpener) Open(ctx context.Context, url string, headers map[string]string) (Stream, error) {
	resp, err := o.client.Stream(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	return &bodyStream{
		status: resp.StatusCode(),
		body:   resp.Body(),
		buf:    make([]byte, o.chunkSize),
	}, nil
}

// bodyStream turns an io.ReadCloser into ordered chunks.
type bodyStream struct {
	status int
	body   io.ReadCloser
	buf    []byte
}

func (s *bodyStream) StatusCode() int { return s.status }

func (s *bodyStream) Next() ([]byte, error) {
	n, err := s.body.Read(s.buf)
	if n == 0 {
		return nil, err
	}
	chunk := make([]byte, n)
	copy(chunk, s.buf[:n])
	return chunk, err
}

func (s *bodyStream) Close() error { return s.body.Close() }
