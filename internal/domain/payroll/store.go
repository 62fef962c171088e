package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"truckbooks/internal/domain/fleet"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const statementColumns = `
    id, driver_id, driver_name, period_start, period_end, status, payment_type, pay_rate,
    loads_json, load_count, total_miles, total_gross_pay, total_driver_pay,
    deductions_json, total_deductions, net_pay,
    fuel_transactions, fuel_gallons, fuel_amount,
    COALESCE(document_path, ''), created_at, updated_at, paid_at, notes
  `

func scanStatement(row pgx.Row) (PayStatement, error) {
	var st PayStatement
	var loadsJSON, deductionsJSON []byte
	if err := row.Scan(&st.ID, &st.DriverID, &st.DriverName, &st.PeriodStart, &st.PeriodEnd, &st.Status, &st.PaymentType, &st.PayRate,
		&loadsJSON, &st.LoadCount, &st.TotalMiles, &st.TotalGrossPay, &st.TotalDriverPay,
		&deductionsJSON, &st.TotalDeductions, &st.NetPay,
		&st.FuelSummary.Transactions, &st.FuelSummary.Gallons, &st.FuelSummary.Amount,
		&st.DocumentPath, &st.CreatedAt, &st.UpdatedAt, &st.PaidAt, &st.Notes); err != nil {
		return PayStatement{}, err
	}
	if err := json.Unmarshal(loadsJSON, &st.Loads); err != nil {
		return PayStatement{}, err
	}
	if err := json.Unmarshal(deductionsJSON, &st.Deductions); err != nil {
		return PayStatement{}, err
	}
	return st, nil
}

func (s *Store) CreateStatement(ctx context.Context, st PayStatement) error {
	loadsJSON, err := json.Marshal(st.Loads)
	if err != nil {
		return err
	}
	deductionsJSON, err := json.Marshal(st.Deductions)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO pay_statements (
      id, driver_id, driver_name, period_start, period_end, status, payment_type, pay_rate,
      loads_json, load_count, total_miles, total_gross_pay, total_driver_pay,
      deductions_json, total_deductions, net_pay,
      fuel_transactions, fuel_gallons, fuel_amount,
      created_at, updated_at, paid_at, notes
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
  `, st.ID, st.DriverID, st.DriverName, st.PeriodStart, st.PeriodEnd, st.Status, st.PaymentType, st.PayRate,
		loadsJSON, st.LoadCount, st.TotalMiles, st.TotalGrossPay, st.TotalDriverPay,
		deductionsJSON, st.TotalDeductions, st.NetPay,
		st.FuelSummary.Transactions, st.FuelSummary.Gallons, st.FuelSummary.Amount,
		st.CreatedAt, st.UpdatedAt, st.PaidAt, st.Notes)
	return err
}

func (s *Store) GetStatement(ctx context.Context, statementID string) (PayStatement, error) {
	if !fleet.ValidID(statementID) {
		return PayStatement{}, ErrStatementNotFound
	}
	st, err := scanStatement(s.DB.QueryRow(ctx, "SELECT "+statementColumns+" FROM pay_statements WHERE id = $1", statementID))
	if errors.Is(err, pgx.ErrNoRows) {
		return PayStatement{}, ErrStatementNotFound
	}
	return st, err
}

func statementWhere(filter StatementFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		where += " AND driver_id = $" + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += " AND status = $" + itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += " AND period_end >= $" + itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += " AND period_start <= $" + itoa(len(args))
	}
	return where, args
}

func (s *Store) CountStatements(ctx context.Context, filter StatementFilter) (int, error) {
	where, args := statementWhere(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM pay_statements"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListStatements(ctx context.Context, filter StatementFilter) ([]PayStatement, error) {
	where, args := statementWhere(filter)
	query := "SELECT " + statementColumns + " FROM pay_statements" + where + " ORDER BY period_start DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statements []PayStatement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, st)
	}
	return statements, rows.Err()
}

func (s *Store) TransitionStatement(ctx context.Context, statementID, from, to string, paidAt *time.Time, updatedAt time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE pay_statements
    SET status = $3, paid_at = $4, updated_at = $5
    WHERE id = $1 AND status = $2
  `, statementID, from, to, paidAt, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s is no longer %s", ErrInvalidStatusTransition, statementID, from)
	}
	return nil
}

func (s *Store) UpdateStatementNotes(ctx context.Context, statementID, notes string, updatedAt time.Time) error {
	tag, err := s.DB.Exec(ctx, "UPDATE pay_statements SET notes = $2, updated_at = $3 WHERE id = $1", statementID, notes, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatementNotFound
	}
	return nil
}

func (s *Store) UpdateDocumentPath(ctx context.Context, statementID, path string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE pay_statements SET document_path = $2 WHERE id = $1", statementID, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatementNotFound
	}
	return nil
}

// ListUndocumentedStatementIDs returns non-void statements that have no
// rendered document yet, oldest first.
func (s *Store) ListUndocumentedStatementIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id FROM pay_statements
    WHERE document_path IS NULL AND status <> 'void'
    ORDER BY created_at
    LIMIT $1
  `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
