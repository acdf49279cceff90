package domain

import "time"

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen         TicketStatus = "OPEN"
	TicketStatusInProgress   TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingParts TicketStatus = "WAITING_PARTS"
	TicketStatusResolved     TicketStatus = "RESOLVED"
	TicketStatusShipped      TicketStatus = "SHIPPED"
	TicketStatusCancelled    TicketStatus = "CANCELLED"
)

// legacyStatusClosed is accepted from older callers and mapped to RESOLVED.
const legacyStatusClosed TicketStatus = "CLOSED"

// NormalizeTicketStatus maps legacy aliases onto the canonical enum.
func NormalizeTicketStatus(status TicketStatus) TicketStatus {
	if status == legacyStatusClosed {
		return TicketStatusResolved
	}
	return status
}

// IsValidTicketStatus reports whether status is a canonical value.
func IsValidTicketStatus(status TicketStatus) bool {
	switch status {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingParts,
		TicketStatusResolved, TicketStatusShipped, TicketStatusCancelled:
		return true
	}
	return false
}

// IsTerminalTicketStatus reports whether the ticket has reached resolution
// for SLA purposes.
func IsTerminalTicketStatus(status TicketStatus) bool {
	switch status {
	case TicketStatusResolved, TicketStatusShipped, TicketStatusCancelled:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for customer service requests.
//
// Invariant: AssignedAt is set if and only if AssignedTo is non-nil.
type Ticket struct {
	ID               string
	Subject          string
	Message          string
	Status           TicketStatus
	Category         string
	Priority         TicketPriority
	VisibleToCompany bool
	PrinterID        *string
	AssignedTo       *string
	AssignedAt       *time.Time
	CompanyID        string
	LastActor        string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TicketPatch describes a partial field update. Nil fields are untouched.
// ClearPrinter removes the printer reference; PrinterID takes precedence
// when both are provided.
type TicketPatch struct {
	Subject          *string
	Category         *string
	Priority         *TicketPriority
	VisibleToCompany *bool
	PrinterID        *string
	ClearPrinter     bool
}
