package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops expired entries and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

// RunSessionSweeper calls Sweep every interval until ctx is done.
func RunSessionSweeper(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) {
	if sweeper == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweeper.Sweep(); n > 0 {
				logger.Debug("expired intake sessions removed", zap.Int("count", n))
			}
		}
	}
}
