package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartRetentionCleaner deletes readings older than retention every interval
// until ctx is done.
func StartRetentionCleaner(
	ctx context.Context,
	db *sql.DB,
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
				cutoff := time.Now().Add(-retention).Unix()
				res, err := db.ExecContext(ctx, `
                    DELETE FROM readings
                     WHERE reading_time < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean old readings", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned old readings", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
