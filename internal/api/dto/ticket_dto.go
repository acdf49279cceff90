package dto

import (
	"time"

	"github.com/printops/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject          string                `json:"subject"`
	Message          string                `json:"message"`
	Category         string                `json:"category"`
	Priority         domain.TicketPriority `json:"priority"`
	PrinterID        *string               `json:"printer_id"`
	VisibleToCompany *bool                 `json:"visible_to_company"`
	// CompanyID is honored for admin callers only.
	CompanyID string `json:"company_id"`
}

// UpdateTicketRequest is a partial field update. Omitted fields are left
// untouched; Version must match the record the caller last read.
type UpdateTicketRequest struct {
	Version          int64                  `json:"version"`
	Subject          *string                `json:"subject"`
	Category         *string                `json:"category"`
	Priority         *domain.TicketPriority `json:"priority"`
	VisibleToCompany *bool                  `json:"visible_to_company"`
	PrinterID        *string                `json:"printer_id"`
	ClearPrinter     bool                   `json:"clear_printer"`
}

// SetStatusRequest payload for manual overrides.
type SetStatusRequest struct {
	Version int64               `json:"version"`
	Status  domain.TicketStatus `json:"status"`
}

// AssignRequest payload. An empty technician id clears the assignment.
type AssignRequest struct {
	Version      int64  `json:"version"`
	TechnicianID string `json:"technician_id"`
}

// AddAttachmentRequest persists a reference from the attachment store.
type AddAttachmentRequest struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

// TicketResponse mirrors the ticket aggregate.
type TicketResponse struct {
	ID               string                `json:"id"`
	Subject          string                `json:"subject"`
	Message          string                `json:"message"`
	Status           domain.TicketStatus   `json:"status"`
	Category         string                `json:"category"`
	Priority         domain.TicketPriority `json:"priority"`
	VisibleToCompany bool                  `json:"visible_to_company"`
	PrinterID        *string               `json:"printer_id"`
	AssignedTo       *string               `json:"assigned_to"`
	AssignedAt       *time.Time            `json:"assigned_at"`
	CompanyID        string                `json:"company_id"`
	Version          int64                 `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// TicketEventResponse is one audit log entry.
type TicketEventResponse struct {
	ID        string                 `json:"id"`
	EventType domain.TicketEventType `json:"event_type"`
	ActorID   string                 `json:"actor_id"`
	ActorRole domain.Role            `json:"actor_role"`
	Payload   map[string]any         `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// AttachmentResponse is a stored attachment reference.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}
