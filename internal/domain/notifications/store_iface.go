package notifications

import "context"

type StoreAPI interface {
	CreateForDriver(ctx context.Context, driverID, ntype, statementID, title, body string) (int, error)
	ListNotifications(ctx context.Context, filter Filter) ([]Notification, error)
	CountNotifications(ctx context.Context, filter Filter) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}
