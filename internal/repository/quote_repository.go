package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
)

const quoteColumns = `id, ticket_id, work_order_id, company_id, status, subtotal, grand_total, currency,
               notes, reject_reason, approved_at, rejected_at, created_by, version, created_at`

type quoteRepository struct {
	db DB
}

// NewQuoteRepository instantiates the repository over the given querier.
func NewQuoteRepository(db DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	const query = `
        INSERT INTO quotes (ticket_id, work_order_id, company_id, status, subtotal, grand_total, currency, notes, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, version, created_at`
	return r.db.QueryRow(ctx, query,
		quote.TicketID,
		quote.WorkOrderID,
		quote.CompanyID,
		quote.Status,
		quote.Subtotal,
		quote.GrandTotal,
		quote.Currency,
		quote.Notes,
		quote.CreatedBy,
	).Scan(&quote.ID, &quote.Version, &quote.CreatedAt)
}

func (r *quoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	const query = `
        UPDATE quotes SET status=$1, notes=$2, reject_reason=$3, approved_at=$4, rejected_at=$5,
            version=version+1
        WHERE id=$6 AND version=$7
        RETURNING version`
	err := r.db.QueryRow(ctx, query,
		quote.Status,
		quote.Notes,
		quote.RejectReason,
		quote.ApprovedAt,
		quote.RejectedAt,
		quote.ID,
		quote.Version,
	).Scan(&quote.Version)
	if err == pgx.ErrNoRows {
		return ErrStaleVersion
	}
	return err
}

func (r *quoteRepository) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	query := fmt.Sprintf(`SELECT %s FROM quotes WHERE id=$1`, quoteColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *quoteRepository) GetForUpdate(ctx context.Context, id string) (*domain.Quote, error) {
	query := fmt.Sprintf(`SELECT %s FROM quotes WHERE id=$1 FOR UPDATE`, quoteColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *quoteRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Quote, error) {
	var quote domain.Quote
	if err := scanQuote(r.db.QueryRow(ctx, query, arg), &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Quote, error) {
	query := fmt.Sprintf(`SELECT %s FROM quotes WHERE ticket_id=$1 ORDER BY created_at DESC`, quoteColumns)
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		var quote domain.Quote
		if err := scanQuote(rows, &quote); err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

func scanQuote(row pgx.Row, quote *domain.Quote) error {
	return row.Scan(
		&quote.ID,
		&quote.TicketID,
		&quote.WorkOrderID,
		&quote.CompanyID,
		&quote.Status,
		&quote.Subtotal,
		&quote.GrandTotal,
		&quote.Currency,
		&quote.Notes,
		&quote.RejectReason,
		&quote.ApprovedAt,
		&quote.RejectedAt,
		&quote.CreatedBy,
		&quote.Version,
		&quote.CreatedAt,
	)
}
