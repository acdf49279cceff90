package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/lifecycle"
	"github.com/printops/servicedesk/internal/repository"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// WorkOrderService owns work orders and their line items.
type WorkOrderService struct {
	runner     repository.Runner
	sync       *lifecycle.Synchronizer
	dispatcher events.Dispatcher
}

// NewWorkOrderService constructs the service.
func NewWorkOrderService(runner repository.Runner, sync *lifecycle.Synchronizer, dispatcher events.Dispatcher) *WorkOrderService {
	return &WorkOrderService{runner: runner, sync: sync, dispatcher: dispatcher}
}

// LineItemInput describes a part or labor entry. Amount is never accepted
// from callers; it is derived from the two factors on every write.
type LineItemInput struct {
	Kind        domain.LineItemKind
	Description string
	Qty         *float64
	UnitPrice   *float64
	Hours       *float64
	HourlyRate  *float64
}

var workOrderTransitions = map[domain.WorkOrderStatus][]domain.WorkOrderStatus{
	domain.WorkOrderStatusNew:        {domain.WorkOrderStatusInProgress, domain.WorkOrderStatusCancelled},
	domain.WorkOrderStatusInProgress: {domain.WorkOrderStatusOnHold, domain.WorkOrderStatusDone, domain.WorkOrderStatusCancelled},
	domain.WorkOrderStatusOnHold:     {domain.WorkOrderStatusInProgress, domain.WorkOrderStatusDone, domain.WorkOrderStatusCancelled},
	domain.WorkOrderStatusDone:       {},
	domain.WorkOrderStatusCancelled:  {},
}

func isValidWorkOrderTransition(current, next domain.WorkOrderStatus) bool {
	for _, candidate := range workOrderTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// EnsureForTicket returns the ticket's work order, creating one in NEW the
// first time an administrator starts work. Idempotent.
func (s *WorkOrderService) EnsureForTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.WorkOrder, error) {
	var order *domain.WorkOrder
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		existing, err := repos.WorkOrders.GetByTicketID(ctx, ticketID)
		if err == nil {
			order = existing
			return nil
		}
		if err != pgx.ErrNoRows {
			return err
		}
		order = &domain.WorkOrder{
			TicketID:   ticket.ID,
			Status:     domain.WorkOrderStatusNew,
			AssignedTo: ticket.AssignedTo,
			CreatedBy:  actor.ID,
		}
		return repos.WorkOrders.Create(ctx, order)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return order, nil
}

// AddLineItem appends a line item. The first item added while the order is
// NEW starts the clock: the order auto-transitions to IN_PROGRESS and
// started_at is stamped, exactly once.
func (s *WorkOrderService) AddLineItem(ctx context.Context, actor domain.Actor, workOrderID string, input LineItemInput) (*domain.LineItem, error) {
	item, err := buildLineItem(workOrderID, input)
	if err != nil {
		return nil, err
	}

	var ticketID string
	var result *lifecycle.Result
	err = s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		order, ticket, err := lockOrderAndTicket(ctx, repos, workOrderID)
		if err != nil {
			return err
		}
		ticketID = ticket.ID
		if err := repos.WorkOrders.AddItem(ctx, item); err != nil {
			return err
		}
		if order.Status != domain.WorkOrderStatusNew {
			return nil
		}
		now := time.Now()
		order.Status = domain.WorkOrderStatusInProgress
		order.StartedAt = &now
		if err := repos.WorkOrders.Update(ctx, order); err != nil {
			return err
		}
		result, err = s.sync.Apply(ctx, repos, ticket, lifecycle.Trigger{
			Kind:           lifecycle.TriggerWorkOrderStatus,
			Actor:          actor,
			WorkOrder:      order,
			OldOrderStatus: domain.WorkOrderStatusNew,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if result != nil {
		s.publish(ctx, result.Outbound...)
	}
	s.publishItemChanged(ctx, actor, ticketID, item)
	return item, nil
}

// UpdateLineItem rewrites the item's factors and recomputes the amount.
func (s *WorkOrderService) UpdateLineItem(ctx context.Context, actor domain.Actor, workOrderID, itemID string, input LineItemInput) (*domain.LineItem, error) {
	var ticketID string
	var item *domain.LineItem
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		order, err := repos.WorkOrders.GetByID(ctx, workOrderID)
		if err != nil {
			return err
		}
		ticketID = order.TicketID
		existing, err := repos.WorkOrders.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if existing.WorkOrderID != workOrderID {
			return pgx.ErrNoRows
		}
		if input.Kind == "" {
			input.Kind = existing.Kind
		}
		item, err = buildLineItem(workOrderID, input)
		if err != nil {
			return err
		}
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		return repos.WorkOrders.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishItemChanged(ctx, actor, ticketID, item)
	return item, nil
}

// RemoveLineItem deletes a line item.
func (s *WorkOrderService) RemoveLineItem(ctx context.Context, actor domain.Actor, workOrderID, itemID string) error {
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		existing, err := repos.WorkOrders.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if existing.WorkOrderID != workOrderID {
			return pgx.ErrNoRows
		}
		return repos.WorkOrders.RemoveItem(ctx, itemID)
	})
	return apperrors.MapError(err)
}

// Transition moves the work order through its state machine and propagates
// the change to the ticket in the same transaction.
func (s *WorkOrderService) Transition(ctx context.Context, actor domain.Actor, workOrderID string, version int64, next domain.WorkOrderStatus, holdReason string) (*domain.WorkOrder, error) {
	if version <= 0 {
		return nil, apperrors.NewValidationError("version is required", nil)
	}
	holdReason = strings.TrimSpace(holdReason)

	var order *domain.WorkOrder
	var result *lifecycle.Result
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		var ticket *domain.Ticket
		var err error
		order, ticket, err = lockOrderAndTicket(ctx, repos, workOrderID)
		if err != nil {
			return err
		}
		if order.Version != version {
			return apperrors.NewConflict("work order was modified concurrently", nil)
		}
		if !isValidWorkOrderTransition(order.Status, next) {
			return apperrors.NewInvalidTransition(string(order.Status), string(next), nil)
		}

		old := order.Status
		now := time.Now()
		switch next {
		case domain.WorkOrderStatusOnHold:
			if holdReason == "" {
				return apperrors.NewValidationError("hold_reason is required when putting a work order on hold", nil)
			}
			order.HoldReason = &holdReason
		case domain.WorkOrderStatusInProgress:
			order.HoldReason = nil
			if order.StartedAt == nil {
				order.StartedAt = &now
			}
		case domain.WorkOrderStatusDone:
			order.CompletedAt = &now
		}
		order.Status = next
		if err := repos.WorkOrders.Update(ctx, order); err != nil {
			return err
		}
		result, err = s.sync.Apply(ctx, repos, ticket, lifecycle.Trigger{
			Kind:           lifecycle.TriggerWorkOrderStatus,
			Actor:          actor,
			WorkOrder:      order,
			OldOrderStatus: old,
		})
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.publish(ctx, result.Outbound...)
	return order, nil
}

// Get fetches a work order by id.
func (s *WorkOrderService) Get(ctx context.Context, workOrderID string) (*domain.WorkOrder, []domain.LineItem, error) {
	repos := s.runner.Repos()
	order, err := repos.WorkOrders.GetByID(ctx, workOrderID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	items, err := repos.WorkOrders.ListItems(ctx, workOrderID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return order, items, nil
}

// Totals sums line items grouped by kind. Pure read.
func (s *WorkOrderService) Totals(ctx context.Context, workOrderID string) (*domain.WorkOrderTotals, error) {
	repos := s.runner.Repos()
	if _, err := repos.WorkOrders.GetByID(ctx, workOrderID); err != nil {
		return nil, apperrors.MapError(err)
	}
	items, err := repos.WorkOrders.ListItems(ctx, workOrderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	totals := sumLineItems(items)
	return &totals, nil
}

func sumLineItems(items []domain.LineItem) domain.WorkOrderTotals {
	var totals domain.WorkOrderTotals
	for _, item := range items {
		switch item.Kind {
		case domain.LineItemKindPart:
			totals.PartsTotal += item.Amount
		case domain.LineItemKindLabor:
			totals.LaborTotal += item.Amount
		}
	}
	totals.GrandTotal = totals.PartsTotal + totals.LaborTotal
	return totals
}

func buildLineItem(workOrderID string, input LineItemInput) (*domain.LineItem, error) {
	item := &domain.LineItem{
		WorkOrderID: workOrderID,
		Kind:        input.Kind,
		Description: strings.TrimSpace(input.Description),
	}
	switch input.Kind {
	case domain.LineItemKindPart:
		if input.Qty == nil || input.UnitPrice == nil {
			return nil, apperrors.NewValidationError("qty and unit_price are required for PART items", nil)
		}
		if *input.Qty <= 0 || *input.UnitPrice < 0 {
			return nil, apperrors.NewValidationError("qty must be positive and unit_price non-negative", nil)
		}
		item.Qty = input.Qty
		item.UnitPrice = input.UnitPrice
	case domain.LineItemKindLabor:
		if input.Hours == nil || input.HourlyRate == nil {
			return nil, apperrors.NewValidationError("hours and hourly_rate are required for LABOR items", nil)
		}
		if *input.Hours <= 0 || *input.HourlyRate < 0 {
			return nil, apperrors.NewValidationError("hours must be positive and hourly_rate non-negative", nil)
		}
		item.Hours = input.Hours
		item.HourlyRate = input.HourlyRate
	default:
		return nil, apperrors.NewValidationError("kind must be PART or LABOR", nil)
	}
	item.Amount = item.ComputeAmount()
	return item, nil
}

// lockOrderAndTicket acquires the ticket lock before the work order lock,
// the ordering every lifecycle transaction follows.
func lockOrderAndTicket(ctx context.Context, repos repository.Repos, workOrderID string) (*domain.WorkOrder, *domain.Ticket, error) {
	peek, err := repos.WorkOrders.GetByID(ctx, workOrderID)
	if err != nil {
		return nil, nil, err
	}
	ticket, err := repos.Tickets.GetForUpdate(ctx, peek.TicketID)
	if err != nil {
		return nil, nil, err
	}
	order, err := repos.WorkOrders.GetForUpdate(ctx, workOrderID)
	if err != nil {
		return nil, nil, err
	}
	return order, ticket, nil
}

func (s *WorkOrderService) publish(ctx context.Context, evts ...events.Event) {
	if s.dispatcher == nil {
		return
	}
	for _, event := range evts {
		_ = s.dispatcher.Publish(ctx, event)
	}
}

func (s *WorkOrderService) publishItemChanged(ctx context.Context, actor domain.Actor, ticketID string, item *domain.LineItem) {
	if s.dispatcher == nil || item == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLineItemChanged,
		TicketID:  ticketID,
		Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload: map[string]any{
			"work_order_id": item.WorkOrderID,
			"line_item_id":  item.ID,
			"amount":        item.Amount,
		},
	})
}
