package domain

import "time"

// NotificationType classifies company notifications.
type NotificationType string

const (
	NotificationTypeStatus     NotificationType = "STATUS"
	NotificationTypeAssignment NotificationType = "ASSIGNMENT"
	NotificationTypeMessage    NotificationType = "MESSAGE"
	NotificationTypeGeneral    NotificationType = "GENERAL"
)

// Notification is an append-only message to a company, mutated only by
// marking it read.
type Notification struct {
	ID        string
	CompanyID string
	Type      NotificationType
	Message   string
	ReadAt    *time.Time
	CreatedAt time.Time
}
