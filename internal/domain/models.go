package domain

import (
	"encoding/json"
	"time"
)

// Domain contains core models and interfaces.

// Snapshot is one successfully decoded payload from a source endpoint.
type Snapshot struct {
	URL        string          `json:"url"`
	StatusCode int             `json:"status_code"`
	Digest     string          `json:"digest"`
	Bytes      int             `json:"bytes"`
	Payload    json.RawMessage `json:"payload"`
	FetchedAt  time.Time       `json:"fetched_at"`
}
