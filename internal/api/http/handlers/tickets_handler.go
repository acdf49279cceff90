package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/printops/servicedesk/internal/api/dto"
	"github.com/printops/servicedesk/internal/auth"
	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/repository"
	"github.com/printops/servicedesk/internal/service"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// TicketsHandler serves ticket endpoints shared by company users and
// administrators; role scoping happens in the service layer.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	visible := true
	if req.VisibleToCompany != nil {
		visible = *req.VisibleToCompany
	}
	ticket, err := h.tickets.Create(c.UserContext(), actor, service.TicketCreateInput{
		Subject:          req.Subject,
		Message:          req.Message,
		Category:         req.Category,
		Priority:         req.Priority,
		PrinterID:        req.PrinterID,
		VisibleToCompany: visible,
		CompanyID:        req.CompanyID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.List(c.UserContext(), actor, parseTicketFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateFields(c.UserContext(), actor, c.Params("id"), req.Version, domain.TicketPatch{
		Subject:          req.Subject,
		Category:         req.Category,
		Priority:         req.Priority,
		VisibleToCompany: req.VisibleToCompany,
		PrinterID:        req.PrinterID,
		ClearPrinter:     req.ClearPrinter,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListEvents GET /tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.tickets.ListEvents(c.UserContext(), actor, c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketEventResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketEventResponse{
			ID:        entry.ID,
			EventType: entry.EventType,
			ActorID:   entry.ActorID,
			ActorRole: entry.ActorRole,
			Payload:   entry.Payload,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	attachment, err := h.tickets.AddAttachment(c.UserContext(), actor, c.Params("id"), req.FilePath, req.FileName)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AttachmentResponse{
		ID:        attachment.ID,
		FilePath:  attachment.FilePath,
		FileName:  attachment.FileName,
		CreatedAt: attachment.CreatedAt,
	}})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.NormalizeTicketStatus(domain.TicketStatus(strings.TrimSpace(part))))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if companyID := c.Query("company_id"); companyID != "" {
		filter.CompanyID = &companyID
	}
	if tech := c.Query("technician_id"); tech != "" {
		filter.AssignedTo = &tech
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:               ticket.ID,
		Subject:          ticket.Subject,
		Message:          ticket.Message,
		Status:           ticket.Status,
		Category:         ticket.Category,
		Priority:         ticket.Priority,
		VisibleToCompany: ticket.VisibleToCompany,
		PrinterID:        ticket.PrinterID,
		AssignedTo:       ticket.AssignedTo,
		AssignedAt:       ticket.AssignedAt,
		CompanyID:        ticket.CompanyID,
		Version:          ticket.Version,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}
