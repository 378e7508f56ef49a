package fetch

import (
	"context"
	"time"
)

// Fetcher builds and runs one-shot JSON requests.
type Fetcher struct {
	opener   Opener
	timeout  time.Duration
	observer Observer
	log      Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds each request from connect to end-of-data. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithObserver registers an observer for every request built by the fetcher.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) {
		if o != nil {
			f.observer = o
		}
	}
}

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(log Logger) Option {
	return func(f *Fetcher) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFetcher constructs a fetcher. A nil opener falls back to an HTTP opener over resty.
func NewFetcher(opener Opener, opts ...Option) *Fetcher {
	if opener == nil {
		opener = NewHTTPOpener(nil, 0)
	}
	f := &Fetcher{
		opener:   opener,
		observer: noopObserver{},
		log:      noopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRequest prepares a request for url in StateIdle. Nothing is sent until Do.
func (f *Fetcher) NewRequest(url string, headers map[string]string) *Request {
	return &Request{
		url:      url,
		headers:  headers,
		opener:   f.opener,
		timeout:  f.timeout,
		observer: f.observer,
		log:      f.log,
		state:    StateIdle,
	}
}

// Fetch performs exactly one GET against url and returns the decoded JSON body.
// Failures are *FetchError values of KindTransport or KindMalformedPayload.
func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) (*Result, error) {
	return f.NewRequest(url, headers).Do(ctx)
}
