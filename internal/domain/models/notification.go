package models

import "time"

// NotificationType indicates which workflow event produced a notification.
type NotificationType string

const (
	NotifSubmission   NotificationType = "SUBMISSION"
	NotifPartialOK    NotificationType = "PARTIAL_APPROVAL"
	NotifAwaitingSign NotificationType = "AWAITING_SIGNED_COPY"
	NotifApproval     NotificationType = "APPROVAL"
	NotifRejection    NotificationType = "REJECTION"
	NotifLowBudget    NotificationType = "LOW_BUDGET"
	NotifArchive      NotificationType = "ARCHIVE"
)

// Notification is delivered in-app to a single recipient.
type Notification struct {
	ID          string           `bson:"_id" json:"id"`
	RecipientID string           `bson:"recipient_id" json:"recipientId"`
	Type        NotificationType `bson:"type" json:"type"`
	Title       string           `bson:"title" json:"title"`
	Message     string           `bson:"message" json:"message"`
	EntityKind  DocumentKind     `bson:"entity_kind,omitempty" json:"entityKind,omitempty"`
	EntityID    string           `bson:"entity_id,omitempty" json:"entityId,omitempty"`
	IsRead      bool             `bson:"is_read" json:"isRead"`
	ReadAt      *time.Time       `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt   time.Time        `bson:"created_at" json:"createdAt"`
}
