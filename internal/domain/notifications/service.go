package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const dateLayout = "2006-01-02"

type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

// StatementUpdate is the slice of a pay statement a driver is told about.
type StatementUpdate struct {
	StatementID string
	DriverID    string
	Status      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	NetPay      float64
}

// StatementStatusChanged notifies the driver's logins about approved, paid
// and voided statements. Other statuses are ignored.
func (s *Service) StatementStatusChanged(ctx context.Context, update StatementUpdate) error {
	ntype, title, body := describe(update)
	if ntype == "" {
		return nil
	}
	created, err := s.store.CreateForDriver(ctx, update.DriverID, ntype, update.StatementID, title, body)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if created == 0 {
		slog.Debug("no driver login to notify", "driverId", update.DriverID, "statementId", update.StatementID)
	}
	return nil
}

func describe(update StatementUpdate) (string, string, string) {
	period := update.PeriodStart.Format(dateLayout) + " to " + update.PeriodEnd.Format(dateLayout)
	switch update.Status {
	case "approved":
		return TypeStatementApproved, "Pay statement approved",
			fmt.Sprintf("Your pay statement for %s was approved. Net pay $%.2f.", period, update.NetPay)
	case "paid":
		return TypeStatementPaid, "Pay statement paid",
			fmt.Sprintf("Your pay statement for %s has been paid. Net pay $%.2f.", period, update.NetPay)
	case "void":
		return TypeStatementVoided, "Pay statement voided",
			fmt.Sprintf("Your pay statement for %s was voided.", period)
	}
	return "", "", ""
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Notification, int, error) {
	total, err := s.store.CountNotifications(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListNotifications(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Notification{}
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.store.MarkAllRead(ctx, userID)
}
