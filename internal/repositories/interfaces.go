package repositories

import (
	"context"
	"time"

	"portfolio-dashboard/internal/models"
)

// NotificationStateRepository stores the local read/dismissed flags of
// synthesised notifications. Owners are backend user ids.
type NotificationStateRepository interface {
	ListByOwner(ctx context.Context, owner string) ([]*models.NotificationState, error)
	MarkRead(ctx context.Context, owner string, notificationIDs []string, at time.Time) error
	Dismiss(ctx context.Context, owner, notificationID string, at time.Time) error
	Touch(ctx context.Context, owner string, notificationIDs []string, at time.Time) error
	DeleteByOwner(ctx context.Context, owner string) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
