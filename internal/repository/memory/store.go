// Package memory provides an in-memory repository.Runner used by tests and
// by DSN-less development runs. WithinTx snapshots the dataset and restores
// it when the callback fails, mirroring the rollback semantics of the
// Postgres runner.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
	"github.com/printops/servicedesk/internal/repository"
)

// Store is an in-memory implementation of repository.Runner.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

type dataset struct {
	tickets       map[string]domain.Ticket
	workOrders    map[string]domain.WorkOrder
	items         map[string]domain.LineItem
	quotes        map[string]domain.Quote
	events        []domain.TicketEvent
	notifications map[string]domain.Notification
	attachments   map[string]domain.Attachment
	companies     map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

func newDataset() *dataset {
	return &dataset{
		tickets:       make(map[string]domain.Ticket),
		workOrders:    make(map[string]domain.WorkOrder),
		items:         make(map[string]domain.LineItem),
		quotes:        make(map[string]domain.Quote),
		notifications: make(map[string]domain.Notification),
		attachments:   make(map[string]domain.Attachment),
		companies:     make(map[string]string),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	for k, v := range d.workOrders {
		c.workOrders[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.quotes {
		c.quotes[k] = v
	}
	c.events = append(c.events, d.events...)
	for k, v := range d.notifications {
		c.notifications[k] = v
	}
	for k, v := range d.attachments {
		c.attachments[k] = v
	}
	for k, v := range d.companies {
		c.companies[k] = v
	}
	return c
}

// SetCompanyName seeds the company directory.
func (s *Store) SetCompanyName(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.companies[id] = name
}

// Repos returns repositories that lock per operation.
func (s *Store) Repos() repository.Repos {
	return s.repos(false)
}

// WithinTx holds the store lock for the whole callback and restores the
// pre-transaction dataset when fn returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) repos(locked bool) repository.Repos {
	base := base{store: s, locked: locked}
	return repository.Repos{
		Tickets:       &ticketRepo{base},
		WorkOrders:    &workOrderRepo{base},
		Quotes:        &quoteRepo{base},
		Events:        &eventRepo{base},
		Notifications: &notificationRepo{base},
		Attachments:   &attachmentRepo{base},
		Companies:     &companyRepo{base},
	}
}

type base struct {
	store  *Store
	locked bool
}

// acquire locks the store unless the caller already holds the transaction
// lock; the returned func releases it.
func (b base) acquire() func() {
	if b.locked {
		return func() {}
	}
	b.store.mu.Lock()
	return b.store.mu.Unlock
}

func (b base) data() *dataset {
	return b.store.data
}

type ticketRepo struct{ base }

func (r *ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	defer r.acquire()()
	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.data().tickets[ticket.ID] = *ticket
	return nil
}

func (r *ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	defer r.acquire()()
	stored, ok := r.data().tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrStaleVersion
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.data().tickets[ticket.ID] = *ticket
	return nil
}

func (r *ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	defer r.acquire()()
	return r.get(id)
}

func (r *ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	defer r.acquire()()
	return r.get(id)
}

func (r *ticketRepo) get(id string) (*domain.Ticket, error) {
	stored, ok := r.data().tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	defer r.acquire()()
	var result []domain.Ticket
	for _, ticket := range r.data().tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func matchesFilter(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CompanyID != nil && ticket.CompanyID != *filter.CompanyID {
		return false
	}
	if filter.AssignedTo != nil {
		if ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo {
			return false
		}
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.VisibleToCompany != nil && ticket.VisibleToCompany != *filter.VisibleToCompany {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range list {
		if p == priority {
			return true
		}
	}
	return false
}

func paginate(tickets []domain.Ticket, limit, offset int) []domain.Ticket {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(tickets) {
		return nil
	}
	end := offset + limit
	if end > len(tickets) {
		end = len(tickets)
	}
	return tickets[offset:end]
}

func (r *ticketRepo) Delete(ctx context.Context, id string) error {
	defer r.acquire()()
	d := r.data()
	if _, ok := d.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(d.tickets, id)
	// cascade, mirroring the FK ON DELETE CASCADE in the schema
	for woID, wo := range d.workOrders {
		if wo.TicketID != id {
			continue
		}
		delete(d.workOrders, woID)
		for itemID, item := range d.items {
			if item.WorkOrderID == woID {
				delete(d.items, itemID)
			}
		}
	}
	for quoteID, quote := range d.quotes {
		if quote.TicketID == id {
			delete(d.quotes, quoteID)
		}
	}
	for attID, att := range d.attachments {
		if att.TicketID == id {
			delete(d.attachments, attID)
		}
	}
	remaining := d.events[:0:0]
	for _, event := range d.events {
		if event.TicketID != id {
			remaining = append(remaining, event)
		}
	}
	d.events = remaining
	return nil
}

type workOrderRepo struct{ base }

func (r *workOrderRepo) Create(ctx context.Context, order *domain.WorkOrder) error {
	defer r.acquire()()
	now := time.Now()
	order.ID = uuid.NewString()
	order.Version = 1
	order.CreatedAt = now
	order.UpdatedAt = now
	r.data().workOrders[order.ID] = *order
	return nil
}

func (r *workOrderRepo) Update(ctx context.Context, order *domain.WorkOrder) error {
	defer r.acquire()()
	stored, ok := r.data().workOrders[order.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != order.Version {
		return repository.ErrStaleVersion
	}
	order.Version++
	order.UpdatedAt = time.Now()
	r.data().workOrders[order.ID] = *order
	return nil
}

func (r *workOrderRepo) GetByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	defer r.acquire()()
	return r.get(id)
}

func (r *workOrderRepo) GetForUpdate(ctx context.Context, id string) (*domain.WorkOrder, error) {
	defer r.acquire()()
	return r.get(id)
}

func (r *workOrderRepo) get(id string) (*domain.WorkOrder, error) {
	stored, ok := r.data().workOrders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *workOrderRepo) GetByTicketID(ctx context.Context, ticketID string) (*domain.WorkOrder, error) {
	defer r.acquire()()
	for _, order := range r.data().workOrders {
		if order.TicketID == ticketID {
			copied := order
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *workOrderRepo) AddItem(ctx context.Context, item *domain.LineItem) error {
	defer r.acquire()()
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now()
	r.data().items[item.ID] = *item
	return nil
}

func (r *workOrderRepo) UpdateItem(ctx context.Context, item *domain.LineItem) error {
	defer r.acquire()()
	if _, ok := r.data().items[item.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.data().items[item.ID] = *item
	return nil
}

func (r *workOrderRepo) RemoveItem(ctx context.Context, itemID string) error {
	defer r.acquire()()
	if _, ok := r.data().items[itemID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.data().items, itemID)
	return nil
}

func (r *workOrderRepo) GetItem(ctx context.Context, itemID string) (*domain.LineItem, error) {
	defer r.acquire()()
	stored, ok := r.data().items[itemID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *workOrderRepo) ListItems(ctx context.Context, workOrderID string) ([]domain.LineItem, error) {
	defer r.acquire()()
	var items []domain.LineItem
	for _, item := range r.data().items {
		if item.WorkOrderID == workOrderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

type quoteRepo struct{ base }

func (r *quoteRepo) Create(ctx context.Context, quote *domain.Quote) error {
	defer r.acquire()()
	quote.ID = uuid.NewString()
	quote.Version = 1
	quote.CreatedAt = time.Now()
	r.data().quotes[quote.ID] = *quote
	return nil
}

func (r *quoteRepo) Update(ctx context.Context, quote *domain.Quote) error {
	defer r.acquire()()
	stored, ok := r.data().quotes[quote.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != quote.Version {
		return repository.ErrStaleVersion
	}
	quote.Version++
	r.data().quotes[quote.ID] = *quote
	return nil
}

func (r *quoteRepo) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	defer r.acquire()()
	return r.get(id)
}

func (r *quoteRepo) GetForUpdate(ctx context.Context, id string) (*domain.Quote, error) {
	defer r.acquire()()
	return r.get(id)
}

func (r *quoteRepo) get(id string) (*domain.Quote, error) {
	stored, ok := r.data().quotes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *quoteRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Quote, error) {
	defer r.acquire()()
	var quotes []domain.Quote
	for _, quote := range r.data().quotes {
		if quote.TicketID == ticketID {
			quotes = append(quotes, quote)
		}
	}
	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
	})
	return quotes, nil
}

type eventRepo struct{ base }

func (r *eventRepo) Append(ctx context.Context, event *domain.TicketEvent) error {
	defer r.acquire()()
	event.ID = uuid.NewString()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.data().events = append(r.data().events, *event)
	return nil
}

func (r *eventRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	defer r.acquire()()
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var events []domain.TicketEvent
	for _, event := range r.data().events {
		if event.TicketID == ticketID {
			events = append(events, event)
		}
	}
	if offset >= len(events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end], nil
}

func (r *eventRepo) ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketEvent, error) {
	defer r.acquire()()
	wanted := make(map[string]bool, len(ticketIDs))
	for _, id := range ticketIDs {
		wanted[id] = true
	}
	var events []domain.TicketEvent
	for _, event := range r.data().events {
		if wanted[event.TicketID] {
			events = append(events, event)
		}
	}
	return events, nil
}

type notificationRepo struct{ base }

func (r *notificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	defer r.acquire()()
	notification.ID = uuid.NewString()
	notification.CreatedAt = time.Now()
	r.data().notifications[notification.ID] = *notification
	return nil
}

func (r *notificationRepo) ListByCompany(ctx context.Context, companyID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	defer r.acquire()()
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var notifications []domain.Notification
	for _, n := range r.data().notifications {
		if n.CompanyID != companyID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if offset >= len(notifications) {
		return nil, nil
	}
	end := offset + limit
	if end > len(notifications) {
		end = len(notifications)
	}
	return notifications[offset:end], nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, companyID, id string, at time.Time) error {
	defer r.acquire()()
	stored, ok := r.data().notifications[id]
	if !ok || stored.CompanyID != companyID || stored.ReadAt != nil {
		return pgx.ErrNoRows
	}
	stored.ReadAt = &at
	r.data().notifications[id] = stored
	return nil
}

type attachmentRepo struct{ base }

func (r *attachmentRepo) Create(ctx context.Context, attachment *domain.Attachment) error {
	defer r.acquire()()
	attachment.ID = uuid.NewString()
	attachment.CreatedAt = time.Now()
	r.data().attachments[attachment.ID] = *attachment
	return nil
}

func (r *attachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	defer r.acquire()()
	var attachments []domain.Attachment
	for _, att := range r.data().attachments {
		if att.TicketID == ticketID {
			attachments = append(attachments, att)
		}
	}
	sort.Slice(attachments, func(i, j int) bool {
		return attachments[i].CreatedAt.Before(attachments[j].CreatedAt)
	})
	return attachments, nil
}

type companyRepo struct{ base }

func (r *companyRepo) GetName(ctx context.Context, companyID string) (string, error) {
	defer r.acquire()()
	name, ok := r.data().companies[companyID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return name, nil
}
