package events

import (
	"time"

	"github.com/printops/servicedesk/internal/domain"
)

// EventType enumerates change-notification event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketUpdated    EventType = "ticket_updated"
	EventTicketStatus     EventType = "ticket_status_changed"
	EventTicketAssigned   EventType = "ticket_assigned"
	EventTicketDeleted    EventType = "ticket_deleted"
	EventWorkOrderStatus  EventType = "work_order_status_changed"
	EventLineItemChanged  EventType = "line_item_changed"
	EventQuoteRaised      EventType = "quote_raised"
	EventQuoteDecided     EventType = "quote_decided"
	EventNotificationSent EventType = "notification_sent"
	EventAttachmentAdded  EventType = "attachment_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event is published to the change-notification channel after the owning
// transaction has committed. Never publish before commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	CompanyID string      `json:"company_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketStatusPayload carries a status change.
type TicketStatusPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload carries an assignment change.
type TicketAssignedPayload struct {
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// WorkOrderStatusPayload carries a work order transition.
type WorkOrderStatusPayload struct {
	WorkOrderID string                 `json:"work_order_id"`
	OldStatus   domain.WorkOrderStatus `json:"old_status"`
	NewStatus   domain.WorkOrderStatus `json:"new_status"`
}

// QuotePayload carries a quote lifecycle change.
type QuotePayload struct {
	QuoteID    string             `json:"quote_id"`
	Status     domain.QuoteStatus `json:"status"`
	GrandTotal float64            `json:"grand_total"`
	Currency   string             `json:"currency"`
}
