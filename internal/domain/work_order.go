package domain

import "time"

// WorkOrderStatus enumerates lifecycle states for work orders.
type WorkOrderStatus string

const (
	WorkOrderStatusNew        WorkOrderStatus = "NEW"
	WorkOrderStatusInProgress WorkOrderStatus = "IN_PROGRESS"
	WorkOrderStatusOnHold     WorkOrderStatus = "ON_HOLD"
	WorkOrderStatusDone       WorkOrderStatus = "DONE"
	WorkOrderStatusCancelled  WorkOrderStatus = "CANCELLED"
)

// WorkOrder is the internal unit of work derived from a ticket. At most one
// work order exists per ticket.
type WorkOrder struct {
	ID          string
	TicketID    string
	Status      WorkOrderStatus
	AssignedTo  *string
	StartedAt   *time.Time
	CompletedAt *time.Time
	HoldReason  *string
	CreatedBy   string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineItemKind differentiates billable parts from labor.
type LineItemKind string

const (
	LineItemKindPart  LineItemKind = "PART"
	LineItemKindLabor LineItemKind = "LABOR"
)

// LineItem is a billable entry attached to a work order. Amount is derived
// from its two factors on every write and stored redundantly for reporting.
type LineItem struct {
	ID          string
	WorkOrderID string
	Kind        LineItemKind
	Description string
	Qty         *float64
	UnitPrice   *float64
	Hours       *float64
	HourlyRate  *float64
	Amount      float64
	CreatedAt   time.Time
}

// ComputeAmount derives the amount from the item's factors.
func (li *LineItem) ComputeAmount() float64 {
	switch li.Kind {
	case LineItemKindPart:
		if li.Qty != nil && li.UnitPrice != nil {
			return *li.Qty * *li.UnitPrice
		}
	case LineItemKindLabor:
		if li.Hours != nil && li.HourlyRate != nil {
			return *li.Hours * *li.HourlyRate
		}
	}
	return 0
}

// WorkOrderTotals sums line items grouped by kind.
type WorkOrderTotals struct {
	PartsTotal float64
	LaborTotal float64
	GrandTotal float64
}
