package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartSoftDeleteCleaner purges tasks deleted more than retention ago,
// once per interval, until ctx is done.
func StartSoftDeleteCleaner(
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
				purgeDeletedTasks(ctx, db, time.Now().Add(-retention), log)
			}
		}
	}()
}

func purgeDeletedTasks(ctx context.Context, db *sql.DB, cutoff time.Time, log *zap.Logger) {
	res, err := db.ExecContext(ctx, `
        DELETE FROM tasks
         WHERE deleted_at IS NOT NULL
           AND deleted_at < $1
    `, cutoff)
	if err != nil {
		log.Error("failed to clean soft-deleted tasks", zap.Error(err))
		return
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		log.Info("cleaned soft-deleted tasks", zap.Int64("removed", rows))
	}
}
