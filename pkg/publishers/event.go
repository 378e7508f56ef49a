package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-rail-feed/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	ID          string          `json:"id"`
	SourceID    string          `json:"source_id"`
	SourceName  string          `json:"source_name"`
	Snapshot    domain.Snapshot `json:"snapshot"`
	PublishedAt time.Time       `json:"published_at"`
}

// NewEvent constructs an Event for the given source + snapshot.
func NewEvent(sourceID, sourceName string, snap domain.Snapshot) Event {
	return Event{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		SourceName:  sourceName,
		Snapshot:    snap,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id":  e.ID,
		"source_id": e.SourceID,
		"digest":    e.Snapshot.Digest,
	}
}
