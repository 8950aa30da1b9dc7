package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger drops storage entries not updated since cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartStorageCleaner purges entries older than retention every interval
// until ctx is done.
func StartStorageCleaner(
	ctx context.Context,
	p Purger,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := p.Purge(ctx, time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to clean expired storage entries", zap.Error(err))
					continue
				}
				if rows > 0 {
					log.Info("cleaned expired storage entries", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
