package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SourceStatus is the outcome of the most recent poll of a source.
type SourceStatus struct {
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Recorder tracks fetch outcomes as prometheus metrics and keeps the last status per source.
type Recorder struct {
	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fetchBytes     *prometheus.GaugeVec
	publishedTotal *prometheus.CounterVec
	unchangedTotal *prometheus.CounterVec

	mu   sync.RWMutex
	last map[string]SourceStatus
}

// NewRecorder registers the watcher metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railfeed_fetch_total",
				Help: "Total number of source fetches by outcome",
			},
			[]string{"source", "outcome"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "railfeed_fetch_duration_seconds",
				Help:    "Duration of source fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		fetchBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "railfeed_fetch_bytes",
				Help: "Size of the last decoded payload per source",
			},
			[]string{"source"},
		),
		publishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railfeed_snapshots_published_total",
				Help: "Snapshots delivered to at least one publisher",
			},
			[]string{"source"},
		),
		unchangedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railfeed_snapshots_unchanged_total",
				Help: "Snapshots skipped because the payload digest was already published",
			},
			[]string{"source"},
		),
		last: make(map[string]SourceStatus),
	}
}

// ObserveFetch records one fetch. bytes is ignored unless the fetch completed.
func (r *Recorder) ObserveFetch(source, outcome string, elapsed time.Duration, bytes int, err error) {
	if r == nil {
		return
	}
	r.fetchTotal.WithLabelValues(source, outcome).Inc()
	r.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err == nil {
		r.fetchBytes.WithLabelValues(source).Set(float64(bytes))
	}

	status := SourceStatus{Outcome: outcome, CheckedAt: time.Now().UTC()}
	if err != nil {
		status.Error = err.Error()
	}
	r.mu.Lock()
	r.last[source] = status
	r.mu.Unlock()
}

func (r *Recorder) Published(source string) {
	if r == nil {
		return
	}
	r.publishedTotal.WithLabelValues(source).Inc()
}

func (r *Recorder) Unchanged(source string) {
	if r == nil {
		return
	}
	r.unchangedTotal.WithLabelValues(source).Inc()
}

// Statuses returns a copy of the last status per source.
func (r *Recorder) Statuses() map[string]SourceStatus {
	out := make(map[string]SourceStatus)
	if r == nil {
		return out
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k, v := range r.last {
		out[k] = v
	}
	return out
}
