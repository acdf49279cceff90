// Package lifecycle centralizes every cross-entity status propagation rule
// behind one entry point. Callers never hand-roll cross-table writes: they
// lock the ticket row (and work order row when present) inside a
// transaction, build a Trigger and call Apply. Any error aborts the whole
// transaction, so partial propagation is never observable.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/repository"
)

// TriggerKind tags the variant carried by a Trigger.
type TriggerKind string

const (
	TriggerAssignmentSet     TriggerKind = "assignment_set"
	TriggerAssignmentCleared TriggerKind = "assignment_cleared"
	TriggerWorkOrderStatus   TriggerKind = "work_order_status"
	TriggerQuoteRaised       TriggerKind = "quote_raised"
	TriggerQuoteApproved     TriggerKind = "quote_approved"
	TriggerQuoteRejected     TriggerKind = "quote_rejected"
	TriggerManualStatus      TriggerKind = "manual_status"
)

// Trigger is the tagged variant driving Apply. Only the fields relevant to
// the Kind are set.
type Trigger struct {
	Kind  TriggerKind
	Actor domain.Actor

	// TriggerAssignmentSet
	TechnicianID string

	// TriggerWorkOrderStatus, TriggerQuoteRaised, TriggerQuoteApproved:
	// the work order, already locked by the caller in the same transaction.
	WorkOrder      *domain.WorkOrder
	OldOrderStatus domain.WorkOrderStatus

	// TriggerQuote*
	Quote *domain.Quote

	// TriggerManualStatus
	NextStatus domain.TicketStatus
}

// Result carries the change-notification events to publish once the
// enclosing transaction has committed.
type Result struct {
	Outbound []events.Event
}

// Synchronizer applies lifecycle propagation rules.
type Synchronizer struct{}

// New creates a Synchronizer.
func New() *Synchronizer {
	return &Synchronizer{}
}

// Apply executes the rule for the trigger against the locked ticket. The
// ticket is mutated and persisted; audit events and notifications are
// appended in the same transaction.
func (s *Synchronizer) Apply(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger) (*Result, error) {
	result := &Result{}

	switch trigger.Kind {
	case TriggerAssignmentSet:
		return s.applyAssignmentSet(ctx, repos, ticket, trigger, result)
	case TriggerAssignmentCleared:
		return s.applyAssignmentCleared(ctx, repos, ticket, trigger, result)
	case TriggerWorkOrderStatus:
		return s.applyWorkOrderStatus(ctx, repos, ticket, trigger, result)
	case TriggerQuoteRaised:
		return s.applyQuoteRaised(ctx, repos, ticket, trigger, result)
	case TriggerQuoteApproved:
		return s.applyQuoteApproved(ctx, repos, ticket, trigger, result)
	case TriggerQuoteRejected:
		return s.applyQuoteRejected(ctx, repos, ticket, trigger, result)
	case TriggerManualStatus:
		return s.applyManualStatus(ctx, repos, ticket, trigger, result)
	}
	return nil, fmt.Errorf("unknown lifecycle trigger %q", trigger.Kind)
}

func (s *Synchronizer) applyAssignmentSet(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger, result *Result) (*Result, error) {
	now := time.Now()
	oldAssignee := ticket.AssignedTo
	tech := trigger.TechnicianID
	ticket.AssignedTo = &tech
	ticket.AssignedAt = &now

	if err := s.appendEvent(ctx, repos, ticket, trigger.Actor, domain.EventTypeAssigned, map[string]any{
		"old_assignee": derefOrNil(oldAssignee),
		"new_assignee": tech,
	}); err != nil {
		return nil, err
	}
	if err := s.setTicketStatus(ctx, repos, ticket, trigger.Actor, domain.TicketStatusInProgress, result); err != nil {
		return nil, err
	}
	if err := s.persistTicket(ctx, repos, ticket, trigger.Actor); err != nil {
		return nil, err
	}

	notification := &domain.Notification{
		CompanyID: ticket.CompanyID,
		Type:      domain.NotificationTypeAssignment,
		Message:   fmt.Sprintf("A technician has been assigned to ticket %q", ticket.Subject),
	}
	if err := repos.Notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	result.Outbound = append(result.Outbound, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: trigger.Actor.ID, Role: trigger.Actor.Role},
		Timestamp: now,
		Payload:   events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
	})
	return result, nil
}

func (s *Synchronizer) applyAssignmentCleared(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger, result *Result) (*Result, error) {
	oldAssignee := ticket.AssignedTo
	ticket.AssignedTo = nil
	ticket.AssignedAt = nil

	if err := s.appendEvent(ctx, repos, ticket, trigger.Actor, domain.EventTypeAssigned, map[string]any{
		"old_assignee": derefOrNil(oldAssignee),
		"new_assignee": nil,
	}); err != nil {
		return nil, err
	}
	if err := s.setTicketStatus(ctx, repos, ticket, trigger.Actor, domain.TicketStatusOpen, result); err != nil {
		return nil, err
	}
	if err := s.persistTicket(ctx, repos, ticket, trigger.Actor); err != nil {
		return nil, err
	}

	result.Outbound = append(result.Outbound, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: trigger.Actor.ID, Role: trigger.Actor.Role},
		Timestamp: time.Now(),
		Payload:   events.TicketAssignedPayload{AssignedTo: nil},
	})
	return result, nil
}

// ticketStatusForOrder maps a work order status onto the ticket status it
// drags the ticket into. Statuses absent from the map leave the ticket
// untouched.
var ticketStatusForOrder = map[domain.WorkOrderStatus]domain.TicketStatus{
	domain.WorkOrderStatusInProgress: domain.TicketStatusInProgress,
	domain.WorkOrderStatusOnHold:     domain.TicketStatusWaitingParts,
	domain.WorkOrderStatusDone:       domain.TicketStatusResolved,
}

func (s *Synchronizer) applyWorkOrderStatus(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger, result *Result) (*Result, error) {
	order := trigger.WorkOrder
	result.Outbound = append(result.Outbound, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventWorkOrderStatus,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: trigger.Actor.ID, Role: trigger.Actor.Role},
		Timestamp: time.Now(),
		Payload: events.WorkOrderStatusPayload{
			WorkOrderID: order.ID,
			OldStatus:   trigger.OldOrderStatus,
			NewStatus:   order.Status,
		},
	})

	next, ok := ticketStatusForOrder[order.Status]
	if !ok {
		return result, nil
	}
	if err := s.setTicketStatus(ctx, repos, ticket, trigger.Actor, next, result); err != nil {
		return nil, err
	}
	if err := s.persistTicket(ctx, repos, ticket, trigger.Actor); err != nil {
		return nil, err
	}
	return result, nil
}

// HoldReasonAwaitingApproval is stamped on a work order paused by a raised
// quote.
const HoldReasonAwaitingApproval = "awaiting customer approval"

func (s *Synchronizer) applyQuoteRaised(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger, result *Result) (*Result, error) {
	order := trigger.WorkOrder
	if order.Status != domain.WorkOrderStatusOnHold {
		reason := HoldReasonAwaitingApproval
		order.HoldReason = &reason
		order.Status = domain.WorkOrderStatusOnHold
		if err := repos.WorkOrders.Update(ctx, order); err != nil {
			return nil, err
		}
	}
	if err := s.setTicketStatus(ctx, repos, ticket, trigger.Actor, domain.TicketStatusWaitingParts, result); err != nil {
		return nil, err
	}
	if err := s.persistTicket(ctx, repos, ticket, trigger.Actor); err != nil {
		return nil, err
	}

	notification := &domain.Notification{
		CompanyID: ticket.CompanyID,
		Type:      domain.NotificationTypeMessage,
		Message:   fmt.Sprintf("A quote for ticket %q is awaiting your approval", ticket.Subject),
	}
	if err := repos.Notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	result.Outbound = append(result.Outbound, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventQuoteRaised,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: trigger.Actor.ID, Role: trigger.Actor.Role},
		Timestamp: time.Now(),
		Payload: events.QuotePayload{
			QuoteID:    trigger.Quote.ID,
			Status:     trigger.Quote.Status,
			GrandTotal: trigger.Quote.GrandTotal,
			Currency:   trigger.Quote.Currency,
		},
	})
	return result, nil
}

// Quote approval auto-resumes the work order. The source system left this
// undefined; resuming matches the operators' expectation that an approved
// quote unblocks the work.
func (s *Synchronizer) applyQuoteApproved(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger, result *Result) (*Result, error) {
	order := trigger.WorkOrder
	if order != nil && order.Status == domain.WorkOrderStatusOnHold {
		order.Status = domain.WorkOrderStatusInProgress
		order.HoldReason = nil
		if err := repos.WorkOrders.Update(ctx, order); err != nil {
			return nil, err
		}
		if err := s.setTicketStatus(ctx, repos, ticket, trigger.Actor, domain.TicketStatusInProgress, result); err != nil {
			return nil, err
		}
		if err := s.persistTicket(ctx, repos, ticket, trigger.Actor); err != nil {
			return nil, err
		}
	}
	result.Outbound = append(result.Outbound, quoteDecidedEvent(ticket, trigger))
	return result, nil
}

// Rejection applies no automatic transition; the work order stays ON_HOLD
// for an operator to follow up.
func (s *Synchronizer) applyQuoteRejected(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger, result *Result) (*Result, error) {
	result.Outbound = append(result.Outbound, quoteDecidedEvent(ticket, trigger))
	return result, nil
}

func quoteDecidedEvent(ticket *domain.Ticket, trigger Trigger) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventQuoteDecided,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: trigger.Actor.ID, Role: trigger.Actor.Role},
		Timestamp: time.Now(),
		Payload: events.QuotePayload{
			QuoteID:    trigger.Quote.ID,
			Status:     trigger.Quote.Status,
			GrandTotal: trigger.Quote.GrandTotal,
			Currency:   trigger.Quote.Currency,
		},
	}
}

// Manual overrides always emit a status_changed event, even when the status
// is unchanged, so the log captures the operator's intent.
func (s *Synchronizer) applyManualStatus(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, trigger Trigger, result *Result) (*Result, error) {
	if ticket.Status == trigger.NextStatus {
		if err := s.appendEvent(ctx, repos, ticket, trigger.Actor, domain.EventTypeStatusChanged, map[string]any{
			"from": string(ticket.Status),
			"to":   string(trigger.NextStatus),
		}); err != nil {
			return nil, err
		}
	} else if err := s.setTicketStatus(ctx, repos, ticket, trigger.Actor, trigger.NextStatus, result); err != nil {
		return nil, err
	}
	if err := s.persistTicket(ctx, repos, ticket, trigger.Actor); err != nil {
		return nil, err
	}
	return result, nil
}

// setTicketStatus records the status change on the ticket struct and
// appends the status_changed audit event.
func (s *Synchronizer) setTicketStatus(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, actor domain.Actor, next domain.TicketStatus, result *Result) error {
	old := ticket.Status
	if old == next {
		return nil
	}
	ticket.Status = next

	if err := s.appendEvent(ctx, repos, ticket, actor, domain.EventTypeStatusChanged, map[string]any{
		"from": string(old),
		"to":   string(next),
	}); err != nil {
		return err
	}

	if ticket.VisibleToCompany {
		notification := &domain.Notification{
			CompanyID: ticket.CompanyID,
			Type:      domain.NotificationTypeStatus,
			Message:   fmt.Sprintf("Ticket %q moved from %s to %s", ticket.Subject, old, next),
		}
		if err := repos.Notifications.Create(ctx, notification); err != nil {
			return err
		}
	}

	result.Outbound = append(result.Outbound, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatus,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload:   events.TicketStatusPayload{OldStatus: old, NewStatus: next},
	})
	return nil
}

func (s *Synchronizer) persistTicket(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, actor domain.Actor) error {
	ticket.LastActor = actor.ID
	return repos.Tickets.Update(ctx, ticket)
}

func (s *Synchronizer) appendEvent(ctx context.Context, repos repository.Repos, ticket *domain.Ticket, actor domain.Actor, eventType domain.TicketEventType, payload map[string]any) error {
	return repos.Events.Append(ctx, &domain.TicketEvent{
		TicketID:         ticket.ID,
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		EventType:        eventType,
		Payload:          payload,
		VisibleToCompany: ticket.VisibleToCompany,
	})
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
