package domain

import "time"

// QuoteStatus enumerates the quote decision states. APPROVED and REJECTED
// are terminal.
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "PENDING"
	QuoteStatusApproved QuoteStatus = "APPROVED"
	QuoteStatusRejected QuoteStatus = "REJECTED"
)

// Quote is a priced proposal raised from a work order. Subtotal and
// GrandTotal are snapshots of the work order's line-item totals at the
// moment the quote was raised, never recomputed afterwards.
type Quote struct {
	ID           string
	TicketID     string
	WorkOrderID  string
	CompanyID    string
	Status       QuoteStatus
	Subtotal     float64
	GrandTotal   float64
	Currency     string
	Notes        string
	RejectReason *string
	ApprovedAt   *time.Time
	RejectedAt   *time.Time
	CreatedBy    string
	Version      int64
	CreatedAt    time.Time
}
