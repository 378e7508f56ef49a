package httpclient

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyClient adapts resty.Client to the StreamClient interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient. A zero timeout disables the client-side timeout.
func NewRestyClient(timeout time.Duration, userAgent string) *RestyClient {
	c := newRestyBaseClient(timeout)
	if ua := strings.TrimSpace(userAgent); ua != "" {
		c.SetHeader("User-Agent", ua)
	}
	return &RestyClient{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// Stream performs an HTTP GET request and returns before the body is read.
func (r *RestyClient) Stream(ctx context.Context, url string, headers map[string]string) (StreamResponse, error) {
	resp, err := r.request(ctx, headers).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, err
	}
	if resp.RawBody() == nil {
		return nil, errors.New("response has no body")
	}
	return &restyStreamAdapter{resp: resp}, nil
}

func (r *RestyClient) request(ctx context.Context, headers map[string]string) *resty.Request {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	return req
}

// restyStreamAdapter adapts an unparsed resty.Response to StreamResponse.
type restyStreamAdapter struct {
	resp *resty.Response
}

func (r *restyStreamAdapter) Body() io.ReadCloser { return r.resp.RawBody() }
func (r *restyStreamAdapter) StatusCode() int     { return r.resp.StatusCode() }
