package service

import (
	"context"
	"strings"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/lifecycle"
	"github.com/printops/servicedesk/internal/repository"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// AssignmentService assigns and unassigns technicians on tickets.
type AssignmentService struct {
	runner     repository.Runner
	sync       *lifecycle.Synchronizer
	dispatcher events.Dispatcher
}

// NewAssignmentService constructs the service.
func NewAssignmentService(runner repository.Runner, sync *lifecycle.Synchronizer, dispatcher events.Dispatcher) *AssignmentService {
	return &AssignmentService{runner: runner, sync: sync, dispatcher: dispatcher}
}

// Assign sets the ticket's technician and moves it to IN_PROGRESS. Pass an
// empty technicianID to clear the assignment, which reopens the ticket.
func (s *AssignmentService) Assign(ctx context.Context, actor domain.Actor, ticketID string, version int64, technicianID string) (*domain.Ticket, error) {
	if version <= 0 {
		return nil, apperrors.NewValidationError("version is required", nil)
	}
	technicianID = strings.TrimSpace(technicianID)

	var ticket *domain.Ticket
	var result *lifecycle.Result
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		var err error
		ticket, err = repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Version != version {
			return apperrors.NewConflict("ticket was modified concurrently", nil)
		}
		if domain.IsTerminalTicketStatus(ticket.Status) {
			return apperrors.NewInvalidState("cannot change assignment on a closed ticket", map[string]any{
				"status": string(ticket.Status),
			})
		}

		trigger := lifecycle.Trigger{Kind: lifecycle.TriggerAssignmentCleared, Actor: actor}
		if technicianID != "" {
			trigger = lifecycle.Trigger{
				Kind:         lifecycle.TriggerAssignmentSet,
				Actor:        actor,
				TechnicianID: technicianID,
			}
		}
		result, err = s.sync.Apply(ctx, repos, ticket, trigger)
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	if s.dispatcher != nil {
		for _, event := range result.Outbound {
			_ = s.dispatcher.Publish(ctx, event)
		}
	}
	return ticket, nil
}
