// Package notifications exposes the per-user notification inbox.
package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
)

// Store is the persistence surface the notifications service needs.
type Store interface {
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int64) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id, recipientID string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
}

// Service reads and updates a user's inbox. Admin users share one inbox so
// every budget officer sees workflow submissions.
type Service struct {
	store  Store
	logger *zap.Logger
}

const adminRecipient = "admin"

// NewService wires a new notifications service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// inboxFor maps an actor to their notification recipient id.
func inboxFor(actor models.Actor) string {
	if actor.IsAdmin() {
		return adminRecipient
	}
	return actor.ID
}

// Inbox lists the actor's notifications, newest first.
func (s *Service) Inbox(ctx context.Context, actor models.Actor, unreadOnly bool, limit int64) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, inboxFor(actor), unreadOnly, limit)
}

// UnreadCount returns the badge number for the actor's inbox.
func (s *Service) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	return s.store.CountUnreadNotifications(ctx, inboxFor(actor))
}

// MarkRead marks one of the actor's notifications as read.
func (s *Service) MarkRead(ctx context.Context, id string, actor models.Actor) error {
	return s.store.MarkNotificationRead(ctx, id, inboxFor(actor))
}

// MarkAllRead clears the actor's unread notifications and returns how many
// were marked.
func (s *Service) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	count, err := s.store.MarkAllNotificationsRead(ctx, inboxFor(actor))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Debug("notifications marked read",
			zap.String("recipient", inboxFor(actor)),
			zap.Int64("count", count))
	}
	return count, nil
}

// Ensure the concrete repository satisfies the interface.
var _ Store = (*mongodb.Repository)(nil)
