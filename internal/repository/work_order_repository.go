package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
)

const workOrderColumns = `id, ticket_id, status, assigned_to, started_at, completed_at,
               hold_reason, created_by, version, created_at, updated_at`

type workOrderRepository struct {
	db DB
}

// NewWorkOrderRepository instantiates the repository over the given querier.
func NewWorkOrderRepository(db DB) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, order *domain.WorkOrder) error {
	const query = `
        INSERT INTO work_orders (ticket_id, status, assigned_to, started_at, completed_at, hold_reason, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, version, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		order.TicketID,
		order.Status,
		order.AssignedTo,
		order.StartedAt,
		order.CompletedAt,
		order.HoldReason,
		order.CreatedBy,
	).Scan(&order.ID, &order.Version, &order.CreatedAt, &order.UpdatedAt)
}

func (r *workOrderRepository) Update(ctx context.Context, order *domain.WorkOrder) error {
	const query = `
        UPDATE work_orders SET status=$1, assigned_to=$2, started_at=$3, completed_at=$4,
            hold_reason=$5, version=version+1, updated_at=NOW()
        WHERE id=$6 AND version=$7
        RETURNING version, updated_at`
	err := r.db.QueryRow(ctx, query,
		order.Status,
		order.AssignedTo,
		order.StartedAt,
		order.CompletedAt,
		order.HoldReason,
		order.ID,
		order.Version,
	).Scan(&order.Version, &order.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrStaleVersion
	}
	return err
}

func (r *workOrderRepository) GetByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM work_orders WHERE id=$1`, workOrderColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *workOrderRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.WorkOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM work_orders WHERE ticket_id=$1`, workOrderColumns)
	return r.fetchSingle(ctx, query, ticketID)
}

func (r *workOrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.WorkOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM work_orders WHERE id=$1 FOR UPDATE`, workOrderColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *workOrderRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.WorkOrder, error) {
	var order domain.WorkOrder
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&order.ID,
		&order.TicketID,
		&order.Status,
		&order.AssignedTo,
		&order.StartedAt,
		&order.CompletedAt,
		&order.HoldReason,
		&order.CreatedBy,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *workOrderRepository) AddItem(ctx context.Context, item *domain.LineItem) error {
	const query = `
        INSERT INTO work_order_items (work_order_id, kind, description, qty, unit_price, hours, hourly_rate, amount)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		item.WorkOrderID,
		item.Kind,
		item.Description,
		item.Qty,
		item.UnitPrice,
		item.Hours,
		item.HourlyRate,
		item.Amount,
	).Scan(&item.ID, &item.CreatedAt)
}

func (r *workOrderRepository) UpdateItem(ctx context.Context, item *domain.LineItem) error {
	const query = `
        UPDATE work_order_items SET kind=$1, description=$2, qty=$3, unit_price=$4, hours=$5, hourly_rate=$6, amount=$7
        WHERE id=$8`
	cmd, err := r.db.Exec(ctx, query,
		item.Kind,
		item.Description,
		item.Qty,
		item.UnitPrice,
		item.Hours,
		item.HourlyRate,
		item.Amount,
		item.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workOrderRepository) RemoveItem(ctx context.Context, itemID string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM work_order_items WHERE id=$1`, itemID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workOrderRepository) GetItem(ctx context.Context, itemID string) (*domain.LineItem, error) {
	const query = `
        SELECT id, work_order_id, kind, description, qty, unit_price, hours, hourly_rate, amount, created_at
        FROM work_order_items WHERE id=$1`
	var item domain.LineItem
	if err := r.db.QueryRow(ctx, query, itemID).Scan(
		&item.ID,
		&item.WorkOrderID,
		&item.Kind,
		&item.Description,
		&item.Qty,
		&item.UnitPrice,
		&item.Hours,
		&item.HourlyRate,
		&item.Amount,
		&item.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *workOrderRepository) ListItems(ctx context.Context, workOrderID string) ([]domain.LineItem, error) {
	const query = `
        SELECT id, work_order_id, kind, description, qty, unit_price, hours, hourly_rate, amount, created_at
        FROM work_order_items WHERE work_order_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(
			&item.ID,
			&item.WorkOrderID,
			&item.Kind,
			&item.Description,
			&item.Qty,
			&item.UnitPrice,
			&item.Hours,
			&item.HourlyRate,
			&item.Amount,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
