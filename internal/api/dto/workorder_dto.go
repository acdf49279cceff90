package dto

import (
	"time"

	"github.com/printops/servicedesk/internal/domain"
)

// LineItemRequest payload for creating or replacing a line item.
type LineItemRequest struct {
	Kind        domain.LineItemKind `json:"kind"`
	Description string              `json:"description"`
	Qty         *float64            `json:"qty"`
	UnitPrice   *float64            `json:"unit_price"`
	Hours       *float64            `json:"hours"`
	HourlyRate  *float64            `json:"hourly_rate"`
}

// TransitionRequest moves a work order to a new status.
type TransitionRequest struct {
	Version    int64                  `json:"version"`
	Status     domain.WorkOrderStatus `json:"status"`
	HoldReason string                 `json:"hold_reason"`
}

// WorkOrderResponse mirrors the work order.
type WorkOrderResponse struct {
	ID          string                 `json:"id"`
	TicketID    string                 `json:"ticket_id"`
	Status      domain.WorkOrderStatus `json:"status"`
	AssignedTo  *string                `json:"assigned_to"`
	StartedAt   *time.Time             `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at"`
	HoldReason  *string                `json:"hold_reason"`
	Version     int64                  `json:"version"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// LineItemResponse mirrors one billable entry.
type LineItemResponse struct {
	ID          string              `json:"id"`
	Kind        domain.LineItemKind `json:"kind"`
	Description string              `json:"description"`
	Qty         *float64            `json:"qty"`
	UnitPrice   *float64            `json:"unit_price"`
	Hours       *float64            `json:"hours"`
	HourlyRate  *float64            `json:"hourly_rate"`
	Amount      float64             `json:"amount"`
	CreatedAt   time.Time           `json:"created_at"`
}

// WorkOrderDetailResponse bundles the order with its items.
type WorkOrderDetailResponse struct {
	WorkOrderResponse
	Items []LineItemResponse `json:"items"`
}

// TotalsResponse reports line item sums by kind.
type TotalsResponse struct {
	PartsTotal float64 `json:"parts_total"`
	LaborTotal float64 `json:"labor_total"`
	GrandTotal float64 `json:"grand_total"`
}
