package poller

import (
	"context"
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-rail-feed/internal/domain"
	"github.com/samvad-hq/samvad-rail-feed/internal/logger"
	"github.com/samvad-hq/samvad-rail-feed/pkg/fetch"
	"github.com/samvad-hq/samvad-rail-feed/pkg/publishers"
	"github.com/samvad-hq/samvad-rail-feed/pkg/sources"
)

const outcomeCompleted = "completed"

// Service polls sources and publishes a payload whenever its digest differs from the
// one last published for that source.
type Service struct {
	fetcher   SnapshotFetcher
	publisher EventPublisher
	store     DigestStore
	recorder  Recorder
	log       logger.Logger
}

// NewService wires a poller. nil store, recorder and log are replaced by no-ops.
func NewService(fetcher SnapshotFetcher, publisher EventPublisher, log logger.Logger, store DigestStore, recorder Recorder) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if store == nil {
		store = nopDigestStore{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		fetcher:   fetcher,
		publisher: publisher,
		store:     store,
		recorder:  recorder,
		log:       log,
	}
}

// Run executes one poll pass over srcs.
func (s *Service) Run(ctx context.Context, srcs []sources.Source) error {
	if s == nil || s.fetcher == nil {
		return fmt.Errorf("poller service is not initialized")
	}
	if len(srcs) == 0 {
		return fmt.Errorf("no sources configured for polling")
	}

	errs := s.runAll(ctx, srcs)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Service) runAll(ctx context.Context, srcs []sources.Source) []error {
	errs := make([]error, 0, len(srcs))

	for i, src := range srcs {
		if ctx.Err() != nil {
			break
		}

		if err := s.runSource(ctx, src); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("source poll failed", "source_error", map[string]any{
				"source_id": src.ID,
				"kind":      fetch.KindOf(err).String(),
				"error":     err.Error(),
			})
		}

		if i < len(srcs)-1 && !sleep(ctx, src.RequestDelay()) {
			break
		}
	}

	return errs
}

func (s *Service) runSource(ctx context.Context, src sources.Source) error {
	start := time.Now()
	res, err := s.fetcher.Fetch(ctx, src.URL, sources.Headers(src))
	elapsed := time.Since(start)
	if err != nil {
		s.recorder.ObserveFetch(src.ID, fetch.KindOf(err).String(), elapsed, 0, err)
		return fmt.Errorf("fetch source %s: %w", src.ID, err)
	}
	s.recorder.ObserveFetch(src.ID, outcomeCompleted, elapsed, res.Bytes, nil)

	digest := hashPayload(res.Raw)

	last, found, err := s.store.LastDigest(src.ID)
	if err != nil {
		s.log.WarnObj("snapshot digest lookup failed", "dedupe_error", map[string]any{
			"source_id": src.ID,
			"digest":    digest,
			"error":     err.Error(),
		})
	}
	if found && last == digest {
		s.recorder.Unchanged(src.ID)
		s.log.DebugObj("source payload unchanged", "source_result", map[string]any{
			"source_id": src.ID,
			"digest":    digest,
		})
		return nil
	}

	snap := domain.Snapshot{
		URL:        res.URL,
		StatusCode: res.StatusCode,
		Digest:     digest,
		Bytes:      res.Bytes,
		Payload:    json.RawMessage(res.Raw),
		FetchedAt:  res.ReceivedAt,
	}
	delivered, pubErr := s.publisher.Publish(ctx, publishers.NewEvent(src.ID, src.Name, snap))
	if delivered > 0 {
		s.recorder.Published(src.ID)
		if err := s.store.SaveDigest(src.ID, digest); err != nil {
			s.log.WarnObj("snapshot digest save failed", "dedupe_error", map[string]any{
				"source_id": src.ID,
				"digest":    digest,
				"error":     err.Error(),
			})
		}
	}
	if pubErr != nil {
		return fmt.Errorf("publish source %s: %w", src.ID, pubErr)
	}

	s.log.InfoObj("source poll completed", "source_result", map[string]any{
		"source_id":   src.ID,
		"status_code": res.StatusCode,
		"bytes":       res.Bytes,
		"chunks":      res.Chunks,
		"delivered":   delivered,
		"elapsed_ms":  elapsed.Milliseconds(),
	})
	return nil
}

func hashPayload(raw []byte) string {
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type nopDigestStore struct{}

func (nopDigestStore) LastDigest(string) (string, bool, error) { return "", false, nil }
func (nopDigestStore) SaveDigest(string, string) error         { return nil }

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, string, time.Duration, int, error) {}
func (nopRecorder) Published(string)                                       {}
func (nopRecorder) Unchanged(string)                                       {}
