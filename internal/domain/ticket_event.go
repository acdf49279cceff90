package domain

import "time"

// TicketEventType captures what an audit log entry records.
type TicketEventType string

const (
	EventTypeCreated           TicketEventType = "created"
	EventTypeStatusChanged     TicketEventType = "status_changed"
	EventTypeAssigned          TicketEventType = "assigned"
	EventTypePrinterChanged    TicketEventType = "printer_changed"
	EventTypeSubjectChanged    TicketEventType = "subject_changed"
	EventTypeVisibilityChanged TicketEventType = "visibility_changed"
	EventTypeCategoryChanged   TicketEventType = "category_changed"
	EventTypePriorityChanged   TicketEventType = "priority_changed"
	EventTypeAttachmentAdded   TicketEventType = "attachment_added"
)

// TicketEvent is an immutable audit trail entry. Entries are append-only and
// only removed together with their parent ticket.
type TicketEvent struct {
	ID               string
	TicketID         string
	ActorID          string
	ActorRole        Role
	EventType        TicketEventType
	Payload          map[string]any
	VisibleToCompany bool
	CreatedAt        time.Time
}
