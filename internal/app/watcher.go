package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samvad-hq/samvad-rail-feed/internal/config"
	"github.com/samvad-hq/samvad-rail-feed/internal/logger"
	"github.com/samvad-hq/samvad-rail-feed/internal/metrics"
	"github.com/samvad-hq/samvad-rail-feed/internal/poller"
	"github.com/samvad-hq/samvad-rail-feed/internal/storage"
	"github.com/samvad-hq/samvad-rail-feed/pkg/publishers"
	"github.com/samvad-hq/samvad-rail-feed/pkg/sources"
)

// Watcher represents the polling runtime. It manages the poll loop, coordinating
// sources, the poller service and publishers. It also owns the digest store and
// the metrics endpoint.
type Watcher struct {
	cfg          *config.Config
	sourceReg    *sources.Registry
	fanout       *publishers.Fanout
	pollService  *poller.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
	recorder     *metrics.Recorder
	promReg      *prometheus.Registry
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	sourceList := sourceReg.All()
	sourceIDs := make([]string, 0, len(sourceList))
	for _, s := range sourceList {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(promReg)

	pollService := poller.NewService(NewDefaultFetcher(cfg, log), fanout, log, store, recorder)

	return &Watcher{
		cfg:          cfg,
		sourceReg:    sourceReg,
		fanout:       fanout,
		pollService:  pollService,
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
		recorder:     recorder,
		promReg:      promReg,
	}, nil
}

// Run starts the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.pollService == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	if w.cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, w.cfg.MetricsAddr, metrics.NewRouter(w.recorder, w.promReg), w.log); err != nil {
				w.log.ErrorObj("metrics server failed", "error", err)
			}
		}()
	}

	srcs := w.sourceReg.All()
	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"sources_count":    len(srcs),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.pollInterval.String(),
	})

	if err := w.runOnce(ctx, srcs); err != nil {
		w.log.ErrorObj("initial poll failed", "error", err)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx, srcs); err != nil {
				w.log.ErrorObj("scheduled poll failed", "error", err)
			}
		}
	}
}

// runOnce performs a single poll pass across all sources.
func (w *Watcher) runOnce(ctx context.Context, srcs []sources.Source) error {
	start := time.Now()
	w.log.InfoObj("poll started", "poll_meta", map[string]any{
		"sources_count": len(srcs),
		"started_at":    start.UTC(),
	})
	if err := w.pollService.Run(ctx, srcs); err != nil {
		return err
	}
	w.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"sources_count": len(srcs),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases the storage backend and publisher connections, logging any errors.
func (w *Watcher) close() {
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err)
		}
	}
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publishers close failed", "error", err)
	}
}
