package dto

import (
	"time"

	"github.com/printops/servicedesk/internal/domain"
)

// RaiseQuoteRequest payload.
type RaiseQuoteRequest struct {
	Currency string `json:"currency"`
	Notes    string `json:"notes"`
}

// RejectQuoteRequest payload.
type RejectQuoteRequest struct {
	Reason string `json:"reason"`
}

// QuoteResponse mirrors the quote snapshot.
type QuoteResponse struct {
	ID           string             `json:"id"`
	TicketID     string             `json:"ticket_id"`
	WorkOrderID  string             `json:"work_order_id"`
	CompanyID    string             `json:"company_id"`
	Status       domain.QuoteStatus `json:"status"`
	Subtotal     float64            `json:"subtotal"`
	GrandTotal   float64            `json:"grand_total"`
	Currency     string             `json:"currency"`
	Notes        string             `json:"notes"`
	RejectReason *string            `json:"reject_reason"`
	ApprovedAt   *time.Time         `json:"approved_at"`
	RejectedAt   *time.Time         `json:"rejected_at"`
	CreatedAt    time.Time          `json:"created_at"`
}
