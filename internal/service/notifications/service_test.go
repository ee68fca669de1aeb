package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
)

type fakeStore struct {
	notifications []*models.Notification
}

func (f *fakeStore) ListNotifications(_ context.Context, recipientID string, unreadOnly bool, limit int64) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) CountUnreadNotifications(_ context.Context, recipientID string) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) MarkNotificationRead(_ context.Context, id, recipientID string) error {
	for _, n := range f.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			now := time.Now()
			n.IsRead = true
			n.ReadAt = &now
			return nil
		}
	}
	return mongodb.ErrNotFound
}

func (f *fakeStore) MarkAllNotificationsRead(_ context.Context, recipientID string) (int64, error) {
	var count int64
	now := time.Now()
	for _, n := range f.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) add(id, recipient string, read bool) {
	f.notifications = append(f.notifications, &models.Notification{
		ID:          id,
		RecipientID: recipient,
		Type:        models.NotifSubmission,
		Title:       "New submission",
		IsRead:      read,
		CreatedAt:   time.Now(),
	})
}

var (
	deptUser = models.Actor{ID: "user-1", Role: models.RoleEndUser}
	officer  = models.Actor{ID: "officer-1", Role: models.RoleAdmin}
)

func TestInboxScopedToRecipient(t *testing.T) {
	store := &fakeStore{}
	store.add("n1", "user-1", false)
	store.add("n2", "user-1", true)
	store.add("n3", "user-2", false)
	svc := NewService(store, nil)

	all, err := svc.Inbox(context.Background(), deptUser, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread, err := svc.Inbox(context.Background(), deptUser, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n1", unread[0].ID)
}

// Budget officers share one inbox keyed by the admin recipient, so every
// officer sees the same submissions.
func TestAdminsShareOneInbox(t *testing.T) {
	store := &fakeStore{}
	store.add("n1", adminRecipient, false)
	store.add("n2", adminRecipient, false)
	svc := NewService(store, nil)

	count, err := svc.UnreadCount(context.Background(), officer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	otherOfficer := models.Actor{ID: "officer-2", Role: models.RoleAdmin}
	marked, err := svc.MarkAllRead(context.Background(), otherOfficer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = svc.UnreadCount(context.Background(), officer)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadOwnInboxOnly(t *testing.T) {
	store := &fakeStore{}
	store.add("n1", "user-2", false)
	svc := NewService(store, nil)

	err := svc.MarkRead(context.Background(), "n1", deptUser)
	assert.ErrorIs(t, err, mongodb.ErrNotFound)

	other := models.Actor{ID: "user-2", Role: models.RoleEndUser}
	require.NoError(t, svc.MarkRead(context.Background(), "n1", other))
	assert.True(t, store.notifications[0].IsRead)
}
