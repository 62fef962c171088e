package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the read side of pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	DB Querier
}

func NewStore(db Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FleetDashboard(ctx context.Context, from, to time.Time) (FleetDashboard, error) {
	out := FleetDashboard{From: from, To: to, StatementsByStatus: map[string]int{}}
	if err := s.DB.QueryRow(ctx, `
    SELECT
      (SELECT COUNT(1) FROM drivers WHERE status = 'active'),
      (SELECT COUNT(1) FROM trucks)
  `).Scan(&out.ActiveDrivers, &out.Trucks); err != nil {
		return FleetDashboard{}, fmt.Errorf("fleet counts: %w", err)
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COALESCE(SUM(loaded_miles),0), COALESCE(SUM(deadhead_miles),0), COALESCE(SUM(rate),0)
    FROM loads
    WHERE load_date BETWEEN $1 AND $2
  `, from, to).Scan(&out.Loads, &out.LoadedMiles, &out.DeadheadMiles, &out.Revenue); err != nil {
		return FleetDashboard{}, fmt.Errorf("load totals: %w", err)
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(COALESCE(total_amount, gallons * price_per_gallon)),0)
    FROM fuel_entries
    WHERE entry_date BETWEEN $1 AND $2
  `, from, to).Scan(&out.FuelAmount); err != nil {
		return FleetDashboard{}, fmt.Errorf("fuel totals: %w", err)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1), COALESCE(SUM(net_pay),0)
    FROM pay_statements
    WHERE period_start <= $2 AND period_end >= $1
    GROUP BY status
  `, from, to)
	if err != nil {
		return FleetDashboard{}, fmt.Errorf("statement totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		var net float64
		if err := rows.Scan(&status, &count, &net); err != nil {
			return FleetDashboard{}, err
		}
		out.StatementsByStatus[status] = count
		if status == "draft" || status == "approved" {
			out.UnpaidNetPay += net
		}
	}
	return out, rows.Err()
}

func (s *Store) DriverDashboard(ctx context.Context, driverID, userID string, yearStart time.Time) (DriverDashboard, error) {
	out := DriverDashboard{DriverID: driverID}
	if err := s.DB.QueryRow(ctx, `
    SELECT
      COUNT(1) FILTER (WHERE status <> 'void'),
      COUNT(1) FILTER (WHERE status = 'approved'),
      COALESCE(SUM(net_pay) FILTER (WHERE status = 'paid' AND paid_at >= $2),0)
    FROM pay_statements
    WHERE driver_id = $1
  `, driverID, yearStart).Scan(&out.Statements, &out.AwaitingPayment, &out.YearToDateNetPay); err != nil {
		return DriverDashboard{}, fmt.Errorf("statement totals: %w", err)
	}

	err := s.DB.QueryRow(ctx, `
    SELECT net_pay, paid_at
    FROM pay_statements
    WHERE driver_id = $1 AND status = 'paid'
    ORDER BY paid_at DESC
    LIMIT 1
  `, driverID).Scan(&out.LastPaidNetPay, &out.LastPaidAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return DriverDashboard{}, fmt.Errorf("last paid statement: %w", err)
	}

	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications WHERE user_id = $1 AND read_at IS NULL
  `, userID).Scan(&out.UnreadNotifications); err != nil {
		return DriverDashboard{}, fmt.Errorf("unread notifications: %w", err)
	}
	return out, nil
}

func (s *Store) CountJobRuns(ctx context.Context, jobType string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM job_runs WHERE ($1::text = '' OR job_type = $1)
  `, jobType).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListJobRuns(ctx context.Context, jobType string, limit, offset int) ([]JobRun, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, job_type, status, details_json, COALESCE(error, ''), started_at, completed_at
    FROM job_runs
    WHERE ($1::text = '' OR job_type = $1)
    ORDER BY started_at DESC
    LIMIT $2 OFFSET $3
  `, jobType, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobRun
	for rows.Next() {
		var run JobRun
		var details []byte
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &details, &run.Error, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			run.Details = details
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
