package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	queries []string
	cutoffs []time.Time
	failOn  string
}

func (r *recordingExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.queries = append(r.queries, sql)
	r.cutoffs = append(r.cutoffs, args[0].(time.Time))
	if r.failOn != "" && len(r.queries) > 1 {
		return pgconn.NewCommandTag("DELETE 0"), errors.New(r.failOn)
	}
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func TestSweepAppliesEveryCategory(t *testing.T) {
	db := &recordingExecer{}
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	removed, err := Sweep(context.Background(), db, now, 30)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{CategoryIdempotency: 3, CategoryNotifications: 3, CategoryJobRuns: 3}, removed)
	require.Len(t, db.queries, 3)
	assert.Contains(t, db.queries[1], "read_at IS NOT NULL")
	for _, cutoff := range db.cutoffs {
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), cutoff)
	}
}

func TestSweepDisabled(t *testing.T) {
	db := &recordingExecer{}
	removed, err := Sweep(context.Background(), db, time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Empty(t, db.queries)
}

func TestSweepStopsOnError(t *testing.T) {
	db := &recordingExecer{failOn: "locked"}
	removed, err := Sweep(context.Background(), db, time.Now(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention notifications")
	assert.Len(t, db.queries, 2)
	assert.Equal(t, int64(3), removed[CategoryIdempotency])
}

func TestApplyUnknownCategory(t *testing.T) {
	_, err := Apply(context.Background(), &recordingExecer{}, "payroll", time.Now())
	assert.Error(t, err)
}
