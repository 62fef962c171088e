package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// CreateForDriver fans a notification out to every active login linked to
// the driver and reports how many rows were written.
func (s *Store) CreateForDriver(ctx context.Context, driverID, ntype, statementID, title, body string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (user_id, type, statement_id, title, body)
    SELECT id, $2, NULLIF($3, '')::uuid, $4, $5
    FROM users
    WHERE driver_id = $1 AND status = 'active'
  `, driverID, ntype, statementID, title, body)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) ListNotifications(ctx context.Context, filter Filter) ([]Notification, error) {
	query, args := notificationQuery(`
    SELECT id, user_id, type, COALESCE(statement_id::text, ''), title, body, read_at, created_at
    FROM notifications`, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.StatementID, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, filter Filter) (int, error) {
	query, args := notificationQuery("SELECT COUNT(1) FROM notifications", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) error {
	if uuid.Validate(notificationID) != nil {
		return ErrNotificationNotFound
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE user_id = $1 AND id = $2
  `, userID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE user_id = $1 AND read_at IS NULL
  `, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func notificationQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " WHERE user_id = $1"
	args := []any{filter.UserID}
	if filter.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	return query, args
}
