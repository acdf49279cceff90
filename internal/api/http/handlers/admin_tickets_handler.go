package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/printops/servicedesk/internal/api/dto"
	"github.com/printops/servicedesk/internal/auth"
	"github.com/printops/servicedesk/internal/service"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// AdminTicketsHandler serves the operator-only ticket mutations: manual
// status overrides, technician assignment and deletion.
type AdminTicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: tickets, assignments: assignments}
}

// SetStatus PUT /admin/tickets/:id/status.
func (h *AdminTicketsHandler) SetStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.SetStatus(c.UserContext(), actor, c.Params("id"), req.Version, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Assign PUT /admin/tickets/:id/assignee.
func (h *AdminTicketsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.assignments.Assign(c.UserContext(), actor, c.Params("id"), req.Version, req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Delete DELETE /admin/tickets/:id.
func (h *AdminTicketsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.tickets.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
