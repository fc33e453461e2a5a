package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRetentionInterval is how often the retention worker sweeps.
const DefaultRetentionInterval = time.Hour

// StartRetentionWorker runs a background goroutine that periodically prunes
// exchanges older than retention. It stops when ctx is canceled.
func StartRetentionWorker(ctx context.Context, repo Repository, retention, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRetentionInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "retention", retention)

		pruneExpired(ctx, repo, retention)
		for {
			select {
			case <-ticker.C:
				pruneExpired(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func pruneExpired(ctx context.Context, repo Repository, retention time.Duration) {
	deleted, err := repo.PruneExchanges(ctx, retention)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Retention worker failed to prune exchanges", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention worker pruned exchanges", "count", deleted)
	}
}
