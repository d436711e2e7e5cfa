package metrics

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRetention is how long untouched notification state is kept
const DefaultRetention = 30 * 24 * time.Hour

// Sweeper is an in-process cache that has to drop expired entries itself
type Sweeper interface {
	Sweep() int
	Len() int
}

// Pruner removes stale notification state
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ConnStats exposes connection pool statistics, satisfied by *sql.DB
type ConnStats interface {
	Stats() sql.DBStats
}

// ConnectionChecker reports broker connectivity
type ConnectionChecker interface {
	Connected() bool
}

// UpdaterSources lists what the updater maintains. Nil fields are skipped.
type UpdaterSources struct {
	Cache     Sweeper
	States    Pruner
	Retention time.Duration
	DB        ConnStats
	NATS      ConnectionChecker
}

// MetricsUpdater periodically refreshes gauge metrics and runs housekeeping
// for the in-memory cache and the notification state store
type MetricsUpdater struct {
	metrics  *Metrics
	sources  UpdaterSources
	interval time.Duration
	logger   zerolog.Logger
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// NewMetricsUpdater creates a new metrics updater
func NewMetricsUpdater(metrics *Metrics, sources UpdaterSources, interval time.Duration, logger zerolog.Logger) *MetricsUpdater {
	if sources.Retention <= 0 {
		sources.Retention = DefaultRetention
	}
	return &MetricsUpdater{
		metrics:  metrics,
		sources:  sources,
		interval: interval,
		logger:   logger.With().Str("component", "metrics_updater").Logger(),
		done:     make(chan struct{}),
	}
}

// Start begins the update loop
func (u *MetricsUpdater) Start() {
	u.ticker = time.NewTicker(u.interval)
	go func() {
		u.Update(context.Background())

		for {
			select {
			case <-u.ticker.C:
				u.Update(context.Background())
			case <-u.done:
				return
			}
		}
	}()
}

// Stop stops the update loop. It is safe to call more than once.
func (u *MetricsUpdater) Stop() {
	u.stopOnce.Do(func() {
		if u.ticker != nil {
			u.ticker.Stop()
		}
		close(u.done)
	})
}

// Update runs a single refresh
func (u *MetricsUpdater) Update(ctx context.Context) {
	if u.sources.Cache != nil {
		if removed := u.sources.Cache.Sweep(); removed > 0 {
			u.logger.Debug().Int("removed", removed).Msg("swept expired cache entries")
		}
		u.metrics.CacheEntries.Set(float64(u.sources.Cache.Len()))
	}

	if u.sources.States != nil {
		removed, err := u.sources.States.Prune(ctx, u.sources.Retention)
		if err != nil {
			u.logger.Error().Err(err).Msg("failed to prune notification state")
			u.metrics.RecordError("metrics_updater", "prune")
		} else {
			u.metrics.NotificationStatePruned.Add(float64(removed))
		}
	}

	if u.sources.DB != nil {
		u.metrics.SetDatabaseConnections(u.sources.DB.Stats().OpenConnections)
	}

	if u.sources.NATS != nil {
		u.metrics.SetNATSConnectionStatus(u.sources.NATS.Connected())
	}
}
