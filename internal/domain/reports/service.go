package reports

import (
	"context"
	"errors"
	"time"

	"truckbooks/internal/platform/clock"
)

const defaultWindow = 7 * 24 * time.Hour

var ErrNoDriverProfile = errors.New("user has no driver profile")

type Service struct {
	store StoreAPI
	clock clock.Clock
}

func NewService(store StoreAPI, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: store, clock: clk}
}

// Fleet summarizes activity between from and to. Missing bounds default to
// the trailing week ending today.
func (s *Service) Fleet(ctx context.Context, from, to time.Time) (FleetDashboard, error) {
	if to.IsZero() {
		to = s.clock.Now().Truncate(24 * time.Hour)
	}
	if from.IsZero() {
		from = to.Add(-defaultWindow + 24*time.Hour)
	}
	return s.store.FleetDashboard(ctx, from, to)
}

func (s *Service) Driver(ctx context.Context, driverID, userID string) (DriverDashboard, error) {
	if driverID == "" {
		return DriverDashboard{}, ErrNoDriverProfile
	}
	now := s.clock.Now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return s.store.DriverDashboard(ctx, driverID, userID, yearStart)
}

func (s *Service) JobRuns(ctx context.Context, jobType string, limit, offset int) ([]JobRun, int, error) {
	total, err := s.store.CountJobRuns(ctx, jobType)
	if err != nil {
		return nil, 0, err
	}
	runs, err := s.store.ListJobRuns(ctx, jobType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if runs == nil {
		runs = []JobRun{}
	}
	return runs, total, nil
}
