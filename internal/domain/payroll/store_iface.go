package payroll

import (
	"context"
	"time"

	"truckbooks/internal/domain/fleet"
)

type StoreAPI interface {
	CreateStatement(ctx context.Context, statement PayStatement) error
	GetStatement(ctx context.Context, statementID string) (PayStatement, error)
	CountStatements(ctx context.Context, filter StatementFilter) (int, error)
	ListStatements(ctx context.Context, filter StatementFilter) ([]PayStatement, error)
	// TransitionStatement applies the change only while the statement is
	// still in status from; otherwise it returns ErrInvalidStatusTransition.
	TransitionStatement(ctx context.Context, statementID, from, to string, paidAt *time.Time, updatedAt time.Time) error
	UpdateStatementNotes(ctx context.Context, statementID, notes string, updatedAt time.Time) error
	UpdateDocumentPath(ctx context.Context, statementID, path string) error
	ListUndocumentedStatementIDs(ctx context.Context, limit int) ([]string, error)
}

// RecordSource is the slice of the fleet store the statement service reads.
type RecordSource interface {
	GetDriver(ctx context.Context, driverID string) (fleet.Driver, error)
	GetTruck(ctx context.Context, truckID string) (fleet.Truck, error)
	ListLoads(ctx context.Context, filter fleet.Filter) ([]fleet.Load, error)
	ListFuelEntries(ctx context.Context, filter fleet.Filter) ([]fleet.FuelEntry, error)
}
