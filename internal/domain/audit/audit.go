package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionDriverCreate      = "driver.create"
	ActionDriverUpdate      = "driver.update"
	ActionTruckCreate       = "truck.create"
	ActionTruckUpdate       = "truck.update"
	ActionLoadCreate        = "load.create"
	ActionFuelCreate        = "fuel.create"
	ActionStatementGenerate = "statement.generate"
	ActionStatementStatus   = "statement.status"
	ActionStatementNotes    = "statement.notes"
	ActionStatementExport   = "statement.export"
	ActionStatementDocument = "statement.document"
)

const EntityStatement = "pay_statement"

// Entry is one change about to be written to the trail. Before and After
// are marshalled to JSON as given; nil leaves the column empty.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	From       time.Time
	To         time.Time
}

type ListOptions struct {
	Details bool
	Limit   int
	Offset  int
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, entry Entry) error {
	before, err := marshalState(entry.Before)
	if err != nil {
		return fmt.Errorf("audit %s before: %w", entry.Action, err)
	}
	after, err := marshalState(entry.After)
	if err != nil {
		return fmt.Errorf("audit %s after: %w", entry.Action, err)
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7, $8)
  `, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, before, after, entry.RequestID, entry.IP)
	return err
}

func marshalState(state any) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := filter.clause()
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, filter Filter, opts ListOptions) ([]Event, error) {
	columns := "id, COALESCE(actor_user_id::text, ''), action, entity_type, entity_id, request_id, ip, created_at"
	if opts.Details {
		columns += ", before_json, after_json"
	}
	where, args := filter.clause()
	query := fmt.Sprintf("SELECT %s FROM audit_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		columns, where, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if opts.Details {
			dest = append(dest, &evt.Before, &evt.After)
		}
		err := row.Scan(dest...)
		return evt, err
	})
}

// clause renders the filter as a WHERE clause with positional args, or an
// empty string when nothing is set. To is exclusive.
func (f Filter) clause() (string, []any) {
	var conds []string
	var args []any
	add := func(expr string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.EntityType != "" {
		add("entity_type = $%d", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.ActorID != "" {
		add("actor_user_id::text = $%d", f.ActorID)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
