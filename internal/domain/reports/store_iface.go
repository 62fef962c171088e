package reports

import (
	"context"
	"time"
)

type StoreAPI interface {
	FleetDashboard(ctx context.Context, from, to time.Time) (FleetDashboard, error)
	DriverDashboard(ctx context.Context, driverID, userID string, yearStart time.Time) (DriverDashboard, error)
	CountJobRuns(ctx context.Context, jobType string) (int, error)
	ListJobRuns(ctx context.Context, jobType string, limit, offset int) ([]JobRun, error)
}
