package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const JobSweep = "retention_sweep"

const (
	CategoryIdempotency   = "idempotency_keys"
	CategoryNotifications = "notifications"
	CategoryJobRuns       = "job_runs"
)

// Categories lists what a sweep purges, in order.
var Categories = []string{CategoryIdempotency, CategoryNotifications, CategoryJobRuns}

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Apply deletes rows of one category older than cutoff. Unread
// notifications and unfinished job runs are kept.
func Apply(ctx context.Context, db Execer, category string, cutoff time.Time) (int64, error) {
	var query string
	switch category {
	case CategoryIdempotency:
		query = `DELETE FROM idempotency_keys WHERE created_at < $1`
	case CategoryNotifications:
		query = `
      DELETE FROM notifications
      WHERE read_at IS NOT NULL AND created_at < $1
    `
	case CategoryJobRuns:
		query = `
      DELETE FROM job_runs
      WHERE completed_at IS NOT NULL AND completed_at < $1
    `
	default:
		return 0, fmt.Errorf("unknown retention category %q", category)
	}
	tag, err := db.Exec(ctx, query, cutoff)
	return tag.RowsAffected(), err
}

// Sweep applies every category with a cutoff of days before now.
func Sweep(ctx context.Context, db Execer, now time.Time, days int) (map[string]int64, error) {
	removed := make(map[string]int64, len(Categories))
	if days <= 0 {
		return removed, nil
	}
	cutoff := now.AddDate(0, 0, -days)
	for _, category := range Categories {
		n, err := Apply(ctx, db, category, cutoff)
		removed[category] = n
		if err != nil {
			return removed, fmt.Errorf("retention %s: %w", category, err)
		}
	}
	return removed, nil
}
