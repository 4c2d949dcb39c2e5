// internal/web/refresh.go
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher periodically re-fetches cached pages so research queries
// keep hitting warm content instead of paying fetch latency.
type Refresher struct {
	cache   *PageCache
	fetcher *PageFetcher
	cron    *cron.Cron
}

// NewRefresher creates a refresher over the given cache and fetcher.
func NewRefresher(cache *PageCache, fetcher *PageFetcher) *Refresher {
	return &Refresher{
		cache:   cache,
		fetcher: fetcher,
		cron:    cron.New(),
	}
}

// Start registers the refresh job under the given cron schedule
// (standard 5-field expression) and starts the ticker.
func (r *Refresher) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.refresh); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop stops the cron ticker and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Refresher) refresh() {
	urls := r.cache.URLs()
	if len(urls) == 0 {
		return
	}
	slog.Info("refreshing page cache", "pages", len(urls))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	for _, u := range urls {
		page, err := r.fetcher.fetch(ctx, u)
		if err != nil {
			slog.Warn("cache refresh failed", "url", u, "error", err)
			continue
		}
		r.cache.Put(u, page)
	}
}
