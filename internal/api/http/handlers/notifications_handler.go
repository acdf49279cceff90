package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/printops/servicedesk/internal/api/dto"
	"github.com/printops/servicedesk/internal/auth"
	"github.com/printops/servicedesk/internal/service"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// NotificationsHandler serves company notification endpoints and the
// operator notify endpoint.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	companyID := actor.CompanyID
	if actor.IsAdmin() {
		companyID = c.Query("company_id")
		if companyID == "" {
			return apperrors.NewValidationError("company_id is required", nil)
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	unreadOnly := c.QueryBool("unread")

	list, err := h.notifications.ListForCompany(c.UserContext(), actor, companyID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		items = append(items, dto.NotificationResponse{
			ID:        n.ID,
			CompanyID: n.CompanyID,
			Type:      n.Type,
			Message:   n.Message,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.notifications.MarkRead(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Notify POST /admin/notifications.
func (h *NotificationsHandler) Notify(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.NotifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CompanyID == "" {
		return apperrors.NewValidationError("company_id is required", nil)
	}
	notification, err := h.notifications.Notify(c.UserContext(), actor, req.CompanyID, req.Type, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NotificationResponse{
		ID:        notification.ID,
		CompanyID: notification.CompanyID,
		Type:      notification.Type,
		Message:   notification.Message,
		ReadAt:    notification.ReadAt,
		CreatedAt: notification.CreatedAt,
	}})
}
