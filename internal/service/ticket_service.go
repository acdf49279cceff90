package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/lifecycle"
	"github.com/printops/servicedesk/internal/repository"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// TicketService owns SupportTicket records and their status.
type TicketService struct {
	runner     repository.Runner
	sync       *lifecycle.Synchronizer
	dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(runner repository.Runner, sync *lifecycle.Synchronizer, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{runner: runner, sync: sync, dispatcher: dispatcher}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject          string
	Message          string
	Category         string
	Priority         domain.TicketPriority
	PrinterID        *string
	VisibleToCompany bool
	// CompanyID is required for admin actors creating on a company's
	// behalf; company actors always create for their own company.
	CompanyID string
}

// Create opens a new ticket in OPEN status and records the created event.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)
	if subject == "" || message == "" {
		return nil, apperrors.NewValidationError("subject and message are required", nil)
	}

	companyID := input.CompanyID
	if actor.Role == domain.RoleCompany {
		companyID = actor.CompanyID
	}
	if companyID == "" {
		return nil, apperrors.NewValidationError("company_id is required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	ticket := &domain.Ticket{
		Subject:          subject,
		Message:          message,
		Status:           domain.TicketStatusOpen,
		Category:         input.Category,
		Priority:         priority,
		VisibleToCompany: input.VisibleToCompany,
		PrinterID:        input.PrinterID,
		CompanyID:        companyID,
		LastActor:        actor.ID,
	}

	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return repos.Events.Append(ctx, &domain.TicketEvent{
			TicketID:         ticket.ID,
			ActorID:          actor.ID,
			ActorRole:        actor.Role,
			EventType:        domain.EventTypeCreated,
			Payload:          map[string]any{"subject": subject, "priority": string(priority)},
			VisibleToCompany: ticket.VisibleToCompany,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
	})
	return ticket, nil
}

// UpdateFields applies a partial update. Every changed field emits its own
// audit event. The caller must supply the version it read.
func (s *TicketService) UpdateFields(ctx context.Context, actor domain.Actor, ticketID string, version int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	if version <= 0 {
		return nil, apperrors.NewValidationError("version is required", nil)
	}

	var ticket *domain.Ticket
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		var err error
		ticket, err = repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Version != version {
			return apperrors.NewConflict("ticket was modified concurrently", map[string]any{
				"supplied_version": version,
				"current_version":  ticket.Version,
			})
		}

		appendEvent := func(eventType domain.TicketEventType, payload map[string]any) error {
			return repos.Events.Append(ctx, &domain.TicketEvent{
				TicketID:         ticket.ID,
				ActorID:          actor.ID,
				ActorRole:        actor.Role,
				EventType:        eventType,
				Payload:          payload,
				VisibleToCompany: ticket.VisibleToCompany,
			})
		}

		if patch.Subject != nil && *patch.Subject != ticket.Subject {
			subject := strings.TrimSpace(*patch.Subject)
			if subject == "" {
				return apperrors.NewValidationError("subject cannot be empty", nil)
			}
			if err := appendEvent(domain.EventTypeSubjectChanged, map[string]any{
				"from": ticket.Subject, "to": subject,
			}); err != nil {
				return err
			}
			ticket.Subject = subject
		}
		if patch.Category != nil && *patch.Category != ticket.Category {
			if err := appendEvent(domain.EventTypeCategoryChanged, map[string]any{
				"from": ticket.Category, "to": *patch.Category,
			}); err != nil {
				return err
			}
			ticket.Category = *patch.Category
		}
		if patch.Priority != nil && *patch.Priority != ticket.Priority {
			if err := appendEvent(domain.EventTypePriorityChanged, map[string]any{
				"from": string(ticket.Priority), "to": string(*patch.Priority),
			}); err != nil {
				return err
			}
			ticket.Priority = *patch.Priority
		}
		if patch.VisibleToCompany != nil && *patch.VisibleToCompany != ticket.VisibleToCompany {
			if err := appendEvent(domain.EventTypeVisibilityChanged, map[string]any{
				"from": ticket.VisibleToCompany, "to": *patch.VisibleToCompany,
			}); err != nil {
				return err
			}
			ticket.VisibleToCompany = *patch.VisibleToCompany
		}
		if patch.PrinterID != nil || patch.ClearPrinter {
			var next *string
			if patch.PrinterID != nil {
				next = patch.PrinterID
			}
			if !samePtr(ticket.PrinterID, next) {
				if err := appendEvent(domain.EventTypePrinterChanged, map[string]any{
					"from": derefOrNil(ticket.PrinterID), "to": derefOrNil(next),
				}); err != nil {
					return err
				}
				ticket.PrinterID = next
			}
		}

		ticket.LastActor = actor.ID
		return repos.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketUpdated,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
	})
	return ticket, nil
}

// SetStatus performs a manual status override. No transition table applies
// at this layer; validity of automatic propagation is the Synchronizer's
// job. Legacy CLOSED writes are normalized to RESOLVED.
func (s *TicketService) SetStatus(ctx context.Context, actor domain.Actor, ticketID string, version int64, next domain.TicketStatus) (*domain.Ticket, error) {
	if version <= 0 {
		return nil, apperrors.NewValidationError("version is required", nil)
	}
	next = domain.NormalizeTicketStatus(next)
	if !domain.IsValidTicketStatus(next) {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": string(next)})
	}

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
		result, err = s.sync.Apply(ctx, repos, ticket, lifecycle.Trigger{
			Kind:       lifecycle.TriggerManualStatus,
			Actor:      actor,
			NextStatus: next,
		})
		return err
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.publish(ctx, result.Outbound...)
	return ticket, nil
}

// Get fetches a ticket. Company actors only see their own visible tickets.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.runner.Repos().Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := authorizeTicketRead(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// List returns tickets matching the filter. Company actors are always
// scoped to their own visible tickets.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if actor.Role == domain.RoleCompany {
		companyID := actor.CompanyID
		visible := true
		filter.CompanyID = &companyID
		filter.VisibleToCompany = &visible
	}
	tickets, err := s.runner.Repos().Tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListEvents returns the audit trail. Company actors only see entries
// flagged visible to them.
func (s *TicketService) ListEvents(ctx context.Context, actor domain.Actor, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	repos := s.runner.Repos()
	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := authorizeTicketRead(actor, ticket); err != nil {
		return nil, err
	}
	entries, err := repos.Events.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleCompany {
		visible := entries[:0]
		for _, entry := range entries {
			if entry.VisibleToCompany {
				visible = append(visible, entry)
			}
		}
		entries = visible
	}
	return entries, nil
}

// Delete removes a ticket and cascades its events, attachments, work order
// and quotes.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID string) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("only administrators may delete tickets")
	}
	var companyID string
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		companyID = ticket.CompanyID
		return repos.Tickets.Delete(ctx, ticketID)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketDeleted,
		TicketID:  ticketID,
		CompanyID: companyID,
		Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
	})
	return nil
}

// AddAttachment persists a reference returned by the external attachment
// store and records the attachment_added event.
func (s *TicketService) AddAttachment(ctx context.Context, actor domain.Actor, ticketID, filePath, fileName string) (*domain.Attachment, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, apperrors.NewValidationError("file_path is required", nil)
	}

	attachment := &domain.Attachment{
		TicketID:   ticketID,
		FilePath:   filePath,
		FileName:   fileName,
		UploadedBy: actor.ID,
	}
	var ticket *domain.Ticket
	err := s.runner.WithinTx(ctx, func(repos repository.Repos) error {
		var err error
		ticket, err = repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := authorizeTicketRead(actor, ticket); err != nil {
			return err
		}
		if err := repos.Attachments.Create(ctx, attachment); err != nil {
			return err
		}
		return repos.Events.Append(ctx, &domain.TicketEvent{
			TicketID:         ticket.ID,
			ActorID:          actor.ID,
			ActorRole:        actor.Role,
			EventType:        domain.EventTypeAttachmentAdded,
			Payload:          map[string]any{"file_name": fileName, "file_path": filePath},
			VisibleToCompany: ticket.VisibleToCompany,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAttachmentAdded,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
	})
	return attachment, nil
}

func (s *TicketService) publish(ctx context.Context, evts ...events.Event) {
	if s.dispatcher == nil {
		return
	}
	for _, event := range evts {
		_ = s.dispatcher.Publish(ctx, event)
	}
}

func authorizeTicketRead(actor domain.Actor, ticket *domain.Ticket) error {
	if actor.Role == domain.RoleCompany {
		if ticket.CompanyID != actor.CompanyID || !ticket.VisibleToCompany {
			return apperrors.NewForbidden("access denied")
		}
	}
	return nil
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// mapRepoError keeps domain errors intact and translates repository
// sentinels.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrStaleVersion) {
		return apperrors.NewConflict("record was modified concurrently", nil)
	}
	return apperrors.MapError(err)
}
