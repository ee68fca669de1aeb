package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// InsertNotification stores one in-app notification.
func (r *Repository) InsertNotification(ctx context.Context, n *models.Notification) error {
	if _, err := r.db.Collection(collNotifications).InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a recipient's notifications, newest first,
// optionally unread only.
func (r *Repository) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int64) ([]models.Notification, error) {
	filter := bson.M{"recipient_id": recipientID}
	if unreadOnly {
		filter["is_read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := r.db.Collection(collNotifications).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	var out []models.Notification
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return out, nil
}

// CountUnreadNotifications returns the unread badge count for a recipient.
func (r *Repository) CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error) {
	n, err := r.db.Collection(collNotifications).CountDocuments(ctx,
		bson.M{"recipient_id": recipientID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one notification read, scoped to its recipient
// so users cannot touch each other's notifications.
func (r *Repository) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	now := time.Now()
	res, err := r.db.Collection(collNotifications).UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of a recipient.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	now := time.Now()
	res, err := r.db.Collection(collNotifications).UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}
