package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/printops/servicedesk/internal/domain"
)

// ErrStaleVersion is returned by Update methods when the supplied entity
// version no longer matches the stored row.
var ErrStaleVersion = errors.New("stale version")

// DB is the querier shared by pool- and transaction-bound repositories.
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CompanyID        *string
	AssignedTo       *string
	Statuses         []domain.TicketStatus
	Priorities       []domain.TicketPriority
	VisibleToCompany *bool
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	Limit            int
	Offset           int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes all mutable fields, guarded by the ticket's Version.
	// On success the Version field is bumped in place.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate locks the ticket row for the duration of the enclosing
	// transaction, serializing concurrent lifecycle triggers.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

// WorkOrderRepository encapsulates work order and line item persistence.
type WorkOrderRepository interface {
	Create(ctx context.Context, order *domain.WorkOrder) error
	Update(ctx context.Context, order *domain.WorkOrder) error
	GetByID(ctx context.Context, id string) (*domain.WorkOrder, error)
	GetByTicketID(ctx context.Context, ticketID string) (*domain.WorkOrder, error)
	// GetForUpdate locks the work order row alongside its ticket.
	GetForUpdate(ctx context.Context, id string) (*domain.WorkOrder, error)

	AddItem(ctx context.Context, item *domain.LineItem) error
	UpdateItem(ctx context.Context, item *domain.LineItem) error
	RemoveItem(ctx context.Context, itemID string) error
	GetItem(ctx context.Context, itemID string) (*domain.LineItem, error)
	ListItems(ctx context.Context, workOrderID string) ([]domain.LineItem, error)
}

// QuoteRepository encapsulates quote persistence.
type QuoteRepository interface {
	Create(ctx context.Context, quote *domain.Quote) error
	Update(ctx context.Context, quote *domain.Quote) error
	GetByID(ctx context.Context, id string) (*domain.Quote, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Quote, error)
	// ListByTicket returns quotes newest first; the head is authoritative.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Quote, error)
}

// EventRepository is the append-only ticket audit log.
type EventRepository interface {
	Append(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketEvent, error)
	ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketEvent, error)
}

// NotificationRepository encapsulates company notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByCompany(ctx context.Context, companyID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, companyID, id string, at time.Time) error
}

// AttachmentRepository persists references returned by the external
// attachment store.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

// CompanyRepository resolves company display names for reporting.
type CompanyRepository interface {
	GetName(ctx context.Context, companyID string) (string, error)
}

// Repos bundles the per-entity repositories bound to one querier.
type Repos struct {
	Tickets       TicketRepository
	WorkOrders    WorkOrderRepository
	Quotes        QuoteRepository
	Events        EventRepository
	Notifications NotificationRepository
	Attachments   AttachmentRepository
	Companies     CompanyRepository
}

// Runner provides repository access and transactional execution. WithinTx
// runs fn against transaction-bound repositories; any error rolls back every
// write made inside fn.
type Runner interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(Repos) error) error
}
