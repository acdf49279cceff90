package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/events"
	"github.com/printops/servicedesk/internal/repository"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// NotificationService stores and serves per-company notifications.
type NotificationService struct {
	runner     repository.Runner
	dispatcher events.Dispatcher
}

// NewNotificationService constructs the service.
func NewNotificationService(runner repository.Runner, dispatcher events.Dispatcher) *NotificationService {
	return &NotificationService{runner: runner, dispatcher: dispatcher}
}

// Notify records an ad-hoc notification for a company.
func (s *NotificationService) Notify(ctx context.Context, actor domain.Actor, companyID string, kind domain.NotificationType, message string) (*domain.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", nil)
	}
	if kind == "" {
		kind = domain.NotificationTypeGeneral
	}

	notification := &domain.Notification{
		CompanyID: companyID,
		Type:      kind,
		Message:   message,
	}
	if err := s.runner.Repos().Notifications.Create(ctx, notification); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventNotificationSent,
			CompanyID: companyID,
			Actor:     events.Actor{ID: actor.ID, Role: actor.Role},
			Timestamp: time.Now(),
			Payload: map[string]any{
				"notification_id": notification.ID,
				"kind":            string(kind),
			},
		})
	}
	return notification, nil
}

// ListForCompany returns a company's notifications newest first.
func (s *NotificationService) ListForCompany(ctx context.Context, actor domain.Actor, companyID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	if !actor.IsAdmin() && actor.CompanyID != companyID {
		return nil, apperrors.NewForbidden("access denied")
	}
	list, err := s.runner.Repos().Notifications.ListByCompany(ctx, companyID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// MarkRead flags one of the caller's own notifications as read. Marking is
// idempotent only in the sense that a second call reports NOT_FOUND; reads
// are never un-done.
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	if actor.CompanyID == "" {
		return apperrors.NewForbidden("only company users receive notifications")
	}
	err := s.runner.Repos().Notifications.MarkRead(ctx, actor.CompanyID, notificationID, time.Now())
	return apperrors.MapError(err)
}
