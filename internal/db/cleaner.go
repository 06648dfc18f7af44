package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const purgeLeadsQuery = `DELETE FROM leads WHERE deleted_at IS NOT NULL AND deleted_at < $1`

// PurgeSoftDeleted permanently removes leads soft-deleted before cutoff and
// reports how many went. Notes and tag links follow through ON DELETE CASCADE.
func PurgeSoftDeleted(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, purgeLeadsQuery, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("PurgeSoftDeleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("PurgeSoftDeleted: %w", err)
	}
	return n, nil
}

// StartSoftDeleteCleaner runs PurgeSoftDeleted with a cutoff of
// now-retention every interval until ctx is done.
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
			case now := <-ticker.C:
				removed, err := PurgeSoftDeleted(ctx, db, now.Add(-retention))
				if err != nil {
					log.Error("failed to clean soft-deleted leads", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned soft-deleted leads", zap.Int64("removed", removed), zap.Duration("retention", retention))
				}
			}
		}
	}()
}
