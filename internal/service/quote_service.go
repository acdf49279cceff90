package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/lifecycle"
	"github.com/printops/servicedesk/internal/repository"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// QuoteService raises quotes off a work order's current line items and
// records the customer's decision.
type QuoteService struct {
	runner     repository.Runner
	sync       *lifecycle.Synchronizer
	dispatcher events.Dispatcher
}

// NewQuoteService constructs the service.
func NewQuoteService(runner repository.Runner, sync *lifecycle.Synchronizer, dispatcher events.Dispatcher) *QuoteService {
	return &QuoteService{runner: runner, sync: sync, dispatcher: dispatcher}
}

// RaiseInput carries the admin-supplied fields of a new quote.
type RaiseInput struct {
	Currency string
	Notes    string
}

// Raise snapshots the work order's line items into a PENDING quote, puts
// the order on hold and moves the ticket to WAITING_PARTS, all in one
// transaction. The totals are frozen at raise time; later item edits do
// not touch an existing quote.
func (s *QuoteService) Raise(ctx context.Context, actor domain.Actor, workOrderID string, input RaiseInput) (*domain.Quote, error) {
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}

	var quote *domain.Quote
	var result *lifecycle.Result
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		order, ticket, err := lockOrderAndTicket(ctx, repos, workOrderID)
		if err != nil {
			return err
		}
		if ticket.CompanyID == "" {
			return apperrors.NewPrerequisite("ticket has no company to approve a quote", nil)
		}
		items, err := repos.WorkOrders.ListItems(ctx, workOrderID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperrors.NewPrerequisite("cannot raise a quote from a work order with no line items", nil)
		}

		totals := sumLineItems(items)
		quote = &domain.Quote{
			TicketID:    ticket.ID,
			WorkOrderID: order.ID,
			CompanyID:   ticket.CompanyID,
			Status:      domain.QuoteStatusPending,
			Subtotal:    totals.PartsTotal + totals.LaborTotal,
			GrandTotal:  totals.GrandTotal,
			Currency:    currency,
			Notes:       strings.TrimSpace(input.Notes),
			CreatedBy:   actor.ID,
		}
		if err := repos.Quotes.Create(ctx, quote); err != nil {
			return err
		}

		result, err = s.sync.Apply(ctx, repos, ticket, lifecycle.Trigger{
			Kind:      lifecycle.TriggerQuoteRaised,
			Actor:     actor,
			WorkOrder: order,
			Quote:     quote,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishAll(ctx, result)
	return quote, nil
}

// Approve records the customer's acceptance. Only the quote's own company
// or an admin may decide, and only while the quote is PENDING.
func (s *QuoteService) Approve(ctx context.Context, actor domain.Actor, quoteID string) (*domain.Quote, error) {
	return s.decide(ctx, actor, quoteID, domain.QuoteStatusApproved, "")
}

// Reject records the customer's refusal with an optional reason. The work
// order stays on hold for an operator to follow up.
func (s *QuoteService) Reject(ctx context.Context, actor domain.Actor, quoteID, reason string) (*domain.Quote, error) {
	return s.decide(ctx, actor, quoteID, domain.QuoteStatusRejected, strings.TrimSpace(reason))
}

func (s *QuoteService) decide(ctx context.Context, actor domain.Actor, quoteID string, decision domain.QuoteStatus, reason string) (*domain.Quote, error) {
	var quote *domain.Quote
	var result *lifecycle.Result
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		peek, err := repos.Quotes.GetByID(ctx, quoteID)
		if err != nil {
			return err
		}
		ticket, err := repos.Tickets.GetForUpdate(ctx, peek.TicketID)
		if err != nil {
			return err
		}
		quote, err = repos.Quotes.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.CompanyID != quote.CompanyID {
			return apperrors.NewForbidden("quote belongs to another company")
		}
		if quote.Status != domain.QuoteStatusPending {
			return apperrors.NewInvalidState("quote has already been decided", map[string]any{
				"status": string(quote.Status),
			})
		}

		var order *domain.WorkOrder
		if wo, err := repos.WorkOrders.GetForUpdate(ctx, quote.WorkOrderID); err == nil {
			order = wo
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		now := time.Now()
		quote.Status = decision
		switch decision {
		case domain.QuoteStatusApproved:
			quote.ApprovedAt = &now
		case domain.QuoteStatusRejected:
			quote.RejectedAt = &now
			if reason != "" {
				quote.RejectReason = &reason
			}
		}
		if err := repos.Quotes.Update(ctx, quote); err != nil {
			return err
		}

		kind := lifecycle.TriggerQuoteApproved
		if decision == domain.QuoteStatusRejected {
			kind = lifecycle.TriggerQuoteRejected
		}
		result, err = s.sync.Apply(ctx, repos, ticket, lifecycle.Trigger{
			Kind:      kind,
			Actor:     actor,
			WorkOrder: order,
			Quote:     quote,
		})
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.publishAll(ctx, result)
	return quote, nil
}

// Get fetches a quote, scoped to the caller's company for non-admins.
func (s *QuoteService) Get(ctx context.Context, actor domain.Actor, quoteID string) (*domain.Quote, error) {
	quote, err := s.runner.Repos().Quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.IsAdmin() && actor.CompanyID != quote.CompanyID {
		return nil, apperrors.NewNotFound("quote not found", nil)
	}
	return quote, nil
}

// ListByTicket returns a ticket's quotes newest first.
func (s *QuoteService) ListByTicket(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Quote, error) {
	repos := s.runner.Repos()
	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := authorizeTicketRead(actor, ticket); err != nil {
		return nil, err
	}
	quotes, err := repos.Quotes.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return quotes, nil
}

func (s *QuoteService) publishAll(ctx context.Context, result *lifecycle.Result) {
	if s.dispatcher == nil || result == nil {
		return
	}
	for _, event := range result.Outbound {
		_ = s.dispatcher.Publish(ctx, event)
	}
}
