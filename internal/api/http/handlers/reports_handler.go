package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/printops/servicedesk/internal/auth"
	"github.com/printops/servicedesk/internal/observability"
	"github.com/printops/servicedesk/internal/service"
	apperrors "github.com/printops/servicedesk/pkg/util"
)

// ReportsHandler serves the operator reporting endpoints backed by the
// SLA/KPI read models.
type ReportsHandler struct {
	sla     *service.SLAService
	metrics *observability.Metrics
}

// NewReportsHandler constructs handler.
func NewReportsHandler(sla *service.SLAService, metrics *observability.Metrics) *ReportsHandler {
	return &ReportsHandler{sla: sla, metrics: metrics}
}

// Outliers GET /admin/reports/outliers.
func (h *ReportsHandler) Outliers(c *fiber.Ctx) error {
	if _, ok := auth.ActorFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	outliers, err := h.sla.Outliers(c.UserContext(), reportFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": outliers})
}

// KPI GET /admin/reports/kpi.
func (h *ReportsHandler) KPI(c *fiber.Ctx) error {
	if _, ok := auth.ActorFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	buckets, err := h.sla.KPIRollup(c.UserContext(), reportFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": buckets})
}

// Metrics GET /admin/debug/metrics.
func (h *ReportsHandler) Metrics(c *fiber.Ctx) error {
	requests, errors := h.metrics.Snapshot()
	return c.JSON(fiber.Map{
		"requests": requests,
		"errors":   errors,
	})
}

func reportFilter(c *fiber.Ctx) service.ReportFilter {
	filter := service.ReportFilter{
		CompanyID:    c.Query("company_id"),
		TechnicianID: c.Query("technician_id"),
	}
	if from := parseTime(c.Query("from")); from != nil {
		filter.From = *from
	}
	if to := parseTime(c.Query("to")); to != nil {
		filter.To = *to
	}
	return filter
}
