package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-rail-feed/internal/config"
	"github.com/samvad-hq/samvad-rail-feed/internal/logger"
	"github.com/samvad-hq/samvad-rail-feed/pkg/fetch"
	"github.com/samvad-hq/samvad-rail-feed/pkg/httpclient"
)

// ErrFetchFailed marks errors that Runner already reported on stderr.
var ErrFetchFailed = errors.New("fetch failed")

// JSONFetcher performs one fetch of a JSON document.
type JSONFetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*fetch.Result, error)
}

// Runner performs a single fetch and renders the outcome for a terminal.
type Runner struct {
	fetcher JSONFetcher
	indent  bool
	stdout  io.Writer
	stderr  io.Writer
	log     logger.Logger
}

// NewDefaultFetcher builds the resty-backed fetcher described by cfg.
func NewDefaultFetcher(cfg *config.Config, log logger.Logger) *fetch.Fetcher {
	client := httpclient.NewRestyClient(0, cfg.UserAgent)
	return fetch.NewFetcher(
		fetch.NewHTTPOpener(client, cfg.FetchChunkSize),
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithLogger(log),
	)
}

// NewRunner wires a one-shot runner. A nil fetcher is built from cfg.
func NewRunner(cfg *config.Config, log logger.Logger, fetcher JSONFetcher, stdout, stderr io.Writer) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if stdout == nil || stderr == nil {
		return nil, fmt.Errorf("stdout and stderr must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if fetcher == nil {
		fetcher = NewDefaultFetcher(cfg, log)
	}
	return &Runner{
		fetcher: fetcher,
		indent:  cfg.OutputIndent,
		stdout:  stdout,
		stderr:  stderr,
		log:     log,
	}, nil
}

// Run fetches url once. The decoded value goes to stdout; any failure goes to
// stderr as "Error: ..." and nothing is written to stdout.
func (r *Runner) Run(ctx context.Context, url string) error {
	res, err := r.fetcher.Fetch(ctx, url, nil)
	if err != nil {
		return r.report(err)
	}

	out, err := r.render(res.Value)
	if err != nil {
		return r.report(fmt.Errorf("render result: %w", err))
	}
	if _, err := r.stdout.Write(out); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	r.log.InfoObj("fetch completed", "fetch_result", map[string]any{
		"url":         res.URL,
		"status_code": res.StatusCode,
		"bytes":       res.Bytes,
		"chunks":      res.Chunks,
	})
	return nil
}

func (r *Runner) render(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if r.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Runner) report(err error) error {
	fmt.Fprintf(r.stderr, "Error: %v\n", err)
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}
