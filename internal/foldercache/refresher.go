package foldercache

import (
	"context"
	"time"

	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

// DefaultRefreshInterval applies when no interval is configured.
const DefaultRefreshInterval = 30 * time.Minute

// IntervalFunc supplies the refresh interval, which is a runtime setting.
type IntervalFunc func(ctx context.Context) time.Duration

// Refresher periodically rebuilds the cache. A manual Kick performs an
// out-of-band rebuild and resets the timer baseline.
type Refresher struct {
	cache    *Cache
	interval IntervalFunc
	logger   uploader.Logger
	kick     chan struct{}
}

// NewRefresher creates a refresher for the given cache.
func NewRefresher(cache *Cache, interval IntervalFunc, logger uploader.Logger) *Refresher {
	if logger == nil {
		logger = uploader.NewNopLogger()
	}
	return &Refresher{
		cache:    cache,
		interval: interval,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an immediate rebuild. Multiple pending kicks coalesce.
func (r *Refresher) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run rebuilds on the configured interval until ctx is cancelled. Rebuild
// failures leave the previous snapshot serving and are logged, never fatal.
func (r *Refresher) Run(ctx context.Context) {
	for {
		interval := r.interval(ctx)
		if interval <= 0 {
			interval = DefaultRefreshInterval
		}
		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-r.kick:
			timer.Stop()
		}

		if err := r.cache.Rebuild(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("scheduled folder cache rebuild failed", "error", err)
		}
	}
}
