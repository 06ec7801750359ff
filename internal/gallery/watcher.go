package gallery

import (
	"context"
	"time"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"go.uber.org/zap"
)

// Watcher owns the catalog's only mutator handle. It rebuilds on a fixed
// interval, on an explicit trigger, and whenever the sync process
// advances the updated.json sentinel.
type Watcher struct {
	catalog      *Catalog
	artifactRoot string
	interval     time.Duration
	pollInterval time.Duration
	logger       *zap.Logger

	stop chan struct{}
	done chan struct{}

	lastSignal time.Time
}

func NewWatcher(conf *config.Config, catalog *Catalog, logger *zap.Logger) *Watcher {
	interval := conf.Gallery.RefreshInterval
	if interval <= 0 {
		interval = time.Hour
	}
	poll := conf.Gallery.SentinelPollInterval
	if poll <= 0 {
		poll = time.Minute
	}
	return &Watcher{
		catalog:      catalog,
		artifactRoot: conf.Artifacts.Root,
		interval:     interval,
		pollInterval: poll,
		logger:       logger,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	defer close(w.done)

	// First build before serving anything stale.
	w.catalog.Rebuild(ctx)
	if ts, ok := manifest.ReadUpdatedSignal(w.artifactRoot); ok {
		w.lastSignal = ts
	}

	rebuild := time.NewTicker(w.interval)
	defer rebuild.Stop()
	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-rebuild.C:
			w.catalog.Rebuild(ctx)
			w.logger.Info("finished extension check",
				zap.Duration("next check in", w.interval),
			)
		case <-poll.C:
			if ts, ok := manifest.ReadUpdatedSignal(w.artifactRoot); ok && ts.After(w.lastSignal) {
				w.lastSignal = ts
				w.logger.Info("sync signal observed, rebuilding catalog",
					zap.Time("signalled", ts),
				)
				w.catalog.Rebuild(ctx)
			}
		case <-w.catalog.trigger:
			w.catalog.Rebuild(ctx)
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		}
	}
}

func (w *Watcher) Stop(ctx context.Context) error {
	close(w.stop)
	select {
	case <-w.done:
	case <-ctx.Done():
	}
	return nil
}
