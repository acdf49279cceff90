package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/printops/servicedesk/internal/api/http/handlers"
	"github.com/printops/servicedesk/internal/auth"
	"github.com/printops/servicedesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	WorkOrders     *handlers.WorkOrdersHandler
	Quotes         *handlers.QuotesHandler
	Notifications  *handlers.NotificationsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", auth.RequireAdmin(), cfg.Tickets.Update)
	tickets.Get("/:id/events", cfg.Tickets.ListEvents)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Get("/:id/quotes", cfg.Quotes.ListByTicket)

	quotes := protected.Group("/quotes")
	quotes.Get("/:id", cfg.Quotes.Get)
	quotes.Post("/:id/approve", auth.RequireRole(domain.RoleCompany, domain.RoleAdmin), cfg.Quotes.Approve)
	quotes.Post("/:id/reject", auth.RequireRole(domain.RoleCompany, domain.RoleAdmin), cfg.Quotes.Reject)

	notifications := protected.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", auth.RequireCompany(), cfg.Notifications.MarkRead)

	admin := protected.Group("/admin", auth.RequireAdmin())
	admin.Put("/tickets/:id/status", cfg.AdminTickets.SetStatus)
	admin.Put("/tickets/:id/assignee", cfg.AdminTickets.Assign)
	admin.Delete("/tickets/:id", cfg.AdminTickets.Delete)
	admin.Post("/tickets/:id/work-order", cfg.WorkOrders.EnsureForTicket)

	admin.Get("/work-orders/:id", cfg.WorkOrders.Get)
	admin.Put("/work-orders/:id/status", cfg.WorkOrders.Transition)
	admin.Post("/work-orders/:id/items", cfg.WorkOrders.AddItem)
	admin.Put("/work-orders/:id/items/:itemId", cfg.WorkOrders.UpdateItem)
	admin.Delete("/work-orders/:id/items/:itemId", cfg.WorkOrders.RemoveItem)
	admin.Get("/work-orders/:id/totals", cfg.WorkOrders.Totals)
	admin.Post("/work-orders/:id/quotes", cfg.Quotes.Raise)

	admin.Post("/notifications", cfg.Notifications.Notify)
	admin.Get("/reports/outliers", cfg.Reports.Outliers)
	admin.Get("/reports/kpi", cfg.Reports.KPI)
	admin.Get("/debug/metrics", cfg.Reports.Metrics)
}
