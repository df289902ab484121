package repository

import (
	"context"
	"errors"

	"ai-testgen-be/internal/model"

	"github.com/google/uuid"
)

// ErrNotificationNotFound covers both a bad id and someone else's row;
// the two are indistinguishable on purpose.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository backs the inbox plus the notification type
// registry the event subscriber reads its routing config from.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *model.Notification) error
	GetNotificationsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	// MarkAsRead is scoped to the owner so one user cannot flip
	// another's rows by guessing ids.
	MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error

	GetNotificationTypeByCode(ctx context.Context, code string) (*model.NotificationType, error)
	GetUsersByRole(ctx context.Context, role string) ([]model.User, error) // Resolves ROLE targets

	// GetPreferences returns nil (not an error) for users who never
	// saved any; callers treat nil as the defaults.
	GetPreferences(ctx context.Context, userID uuid.UUID) (*model.UserNotificationPreference, error)
	SavePreferences(ctx context.Context, pref *model.UserNotificationPreference) error
}
