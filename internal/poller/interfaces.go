package poller

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-rail-feed/pkg/fetch"
	"github.com/samvad-hq/samvad-rail-feed/pkg/publishers"
)

// SnapshotFetcher retrieves and decodes one source payload.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*fetch.Result, error)
}

// EventPublisher publishes snapshots downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// DigestStore remembers the last published payload digest of each source.
type DigestStore interface {
	LastDigest(sourceID string) (string, bool, error)
	SaveDigest(sourceID, digest string) error
}

// Recorder receives per-source poll outcomes.
type Recorder interface {
	ObserveFetch(source, outcome string, elapsed time.Duration, bytes int, err error)
	Published(source string)
	Unchanged(source string)
}
