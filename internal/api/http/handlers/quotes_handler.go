package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/printops/servicedesk/internal/api/dto"
	"github.com/printops/servicedesk/internal/auth"
	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/service"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// QuotesHandler serves quote endpoints. Raising is an operator action;
// approve and reject belong to the owning company.
type QuotesHandler struct {
	quotes *service.QuoteService
}

// NewQuotesHandler constructs handler.
func NewQuotesHandler(quotes *service.QuoteService) *QuotesHandler {
	return &QuotesHandler{quotes: quotes}
}

// Raise POST /admin/work-orders/:id/quotes.
func (h *QuotesHandler) Raise(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RaiseQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	quote, err := h.quotes.Raise(c.UserContext(), actor, c.Params("id"), service.RaiseInput{
		Currency: req.Currency,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": quoteResponse(quote)})
}

// Get GET /quotes/:id.
func (h *QuotesHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	quote, err := h.quotes.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteResponse(quote)})
}

// ListByTicket GET /tickets/:id/quotes.
func (h *QuotesHandler) ListByTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	quotes, err := h.quotes.ListByTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.QuoteResponse, 0, len(quotes))
	for i := range quotes {
		items = append(items, quoteResponse(&quotes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Approve POST /quotes/:id/approve.
func (h *QuotesHandler) Approve(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	quote, err := h.quotes.Approve(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteResponse(quote)})
}

// Reject POST /quotes/:id/reject.
func (h *QuotesHandler) Reject(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	quote, err := h.quotes.Reject(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteResponse(quote)})
}

func quoteResponse(quote *domain.Quote) dto.QuoteResponse {
	return dto.QuoteResponse{
		ID:           quote.ID,
		TicketID:     quote.TicketID,
		WorkOrderID:  quote.WorkOrderID,
		CompanyID:    quote.CompanyID,
		Status:       quote.Status,
		Subtotal:     quote.Subtotal,
		GrandTotal:   quote.GrandTotal,
		Currency:     quote.Currency,
		Notes:        quote.Notes,
		RejectReason: quote.RejectReason,
		ApprovedAt:   quote.ApprovedAt,
		RejectedAt:   quote.RejectedAt,
		CreatedAt:    quote.CreatedAt,
	}
}
