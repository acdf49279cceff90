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

// WorkOrdersHandler serves the operator work order endpoints.
type WorkOrdersHandler struct {
	workOrders *service.WorkOrderService
}

// NewWorkOrdersHandler constructs handler.
func NewWorkOrdersHandler(workOrders *service.WorkOrderService) *WorkOrdersHandler {
	return &WorkOrdersHandler{workOrders: workOrders}
}

// EnsureForTicket POST /admin/tickets/:id/work-order.
func (h *WorkOrdersHandler) EnsureForTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.workOrders.EnsureForTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": workOrderResponse(order)})
}

// Get GET /admin/work-orders/:id.
func (h *WorkOrdersHandler) Get(c *fiber.Ctx) error {
	if _, ok := auth.ActorFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, items, err := h.workOrders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	detail := dto.WorkOrderDetailResponse{WorkOrderResponse: workOrderResponse(order)}
	for i := range items {
		detail.Items = append(detail.Items, lineItemResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": detail})
}

// Transition PUT /admin/work-orders/:id/status.
func (h *WorkOrdersHandler) Transition(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.workOrders.Transition(c.UserContext(), actor, c.Params("id"), req.Version, req.Status, req.HoldReason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderResponse(order)})
}

// AddItem POST /admin/work-orders/:id/items.
func (h *WorkOrdersHandler) AddItem(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.LineItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.workOrders.AddLineItem(c.UserContext(), actor, c.Params("id"), lineItemInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": lineItemResponse(item)})
}

// UpdateItem PUT /admin/work-orders/:id/items/:itemId.
func (h *WorkOrdersHandler) UpdateItem(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.LineItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.workOrders.UpdateLineItem(c.UserContext(), actor, c.Params("id"), c.Params("itemId"), lineItemInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lineItemResponse(item)})
}

// RemoveItem DELETE /admin/work-orders/:id/items/:itemId.
func (h *WorkOrdersHandler) RemoveItem(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.workOrders.RemoveLineItem(c.UserContext(), actor, c.Params("id"), c.Params("itemId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Totals GET /admin/work-orders/:id/totals.
func (h *WorkOrdersHandler) Totals(c *fiber.Ctx) error {
	if _, ok := auth.ActorFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	totals, err := h.workOrders.Totals(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TotalsResponse{
		PartsTotal: totals.PartsTotal,
		LaborTotal: totals.LaborTotal,
		GrandTotal: totals.GrandTotal,
	}})
}

func lineItemInput(req dto.LineItemRequest) service.LineItemInput {
	return service.LineItemInput{
		Kind:        req.Kind,
		Description: req.Description,
		Qty:         req.Qty,
		UnitPrice:   req.UnitPrice,
		Hours:       req.Hours,
		HourlyRate:  req.HourlyRate,
	}
}

func workOrderResponse(order *domain.WorkOrder) dto.WorkOrderResponse {
	return dto.WorkOrderResponse{
		ID:          order.ID,
		TicketID:    order.TicketID,
		Status:      order.Status,
		AssignedTo:  order.AssignedTo,
		StartedAt:   order.StartedAt,
		CompletedAt: order.CompletedAt,
		HoldReason:  order.HoldReason,
		Version:     order.Version,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func lineItemResponse(item *domain.LineItem) dto.LineItemResponse {
	return dto.LineItemResponse{
		ID:          item.ID,
		Kind:        item.Kind,
		Description: item.Description,
		Qty:         item.Qty,
		UnitPrice:   item.UnitPrice,
		Hours:       item.Hours,
		HourlyRate:  item.HourlyRate,
		Amount:      item.Amount,
		CreatedAt:   item.CreatedAt,
	}
}
