package worker

import (
	"context"
	"log/slog"
	"time"

	"hncast/store"
)

// Cleaner prunes stories that dropped off the front page and went stale,
// along with their cached comments and articles.
type Cleaner struct {
	stories   *store.StoryStore
	retention time.Duration
}

func NewCleaner(stories *store.StoryStore, retention time.Duration) *Cleaner {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Cleaner{stories: stories, retention: retention}
}

// Start begins the daily cleanup cycle. It runs until the context is
// cancelled.
func (c *Cleaner) Start(ctx context.Context) {
	go func() {
		// Let data accumulate after startup before the first run.
		select {
		case <-time.After(1 * time.Hour):
			c.cleanup(ctx)
		case <-ctx.Done():
			slog.Info("cleaner: shutting down before first run")
			return
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("cleaner: shutting down")
				return
			case <-ticker.C:
				c.cleanup(ctx)
			}
		}
	}()
}

func (c *Cleaner) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-c.retention).Unix()
	deleted, err := c.stories.PruneBefore(ctx, cutoff)
	if err != nil {
		slog.Error("cleaner: prune error", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("cleaner: pruned stale stories", "count", deleted)
	}
}
