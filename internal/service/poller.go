package service

import (
	"context"
	"time"

	"github.com/atinyakov/DexWatch/internal/models"
	"go.uber.org/zap"
)

// Poller is satisfied by ReadingService.
type Poller interface {
	Poll(ctx context.Context) (models.StoredReading, error)
}

// StartPolling polls immediately and then every interval until ctx is done.
// Failures are logged by the poller and do not stop the loop.
func StartPolling(ctx context.Context, p Poller, interval time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
				log.Warn("poll cycle ended without a recorded reading", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
