package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
)

type eventRepository struct {
	db DB
}

// NewEventRepository instantiates the repository over the given querier.
func NewEventRepository(db DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (ticket_id, actor_id, actor_role, event_type, payload, visible_to_company)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		event.TicketID,
		event.ActorID,
		event.ActorRole,
		event.EventType,
		event.Payload,
		event.VisibleToCompany,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *eventRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT id, ticket_id, actor_id, actor_role, event_type, payload, visible_to_company, created_at
        FROM ticket_events WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT %d OFFSET %d`, limit, offset)
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *eventRepository) ListByTicketIDs(ctx context.Context, ticketIDs []string) ([]domain.TicketEvent, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ticketIDs))
	args := make([]any, len(ticketIDs))
	for i, id := range ticketIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`
        SELECT id, ticket_id, actor_id, actor_role, event_type, payload, visible_to_company, created_at
        FROM ticket_events WHERE ticket_id IN (%s) ORDER BY created_at ASC`, strings.Join(placeholders, ","))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]domain.TicketEvent, error) {
	var events []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.ActorID,
			&event.ActorRole,
			&event.EventType,
			&event.Payload,
			&event.VisibleToCompany,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
