package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/printops/servicedesk/internal/domain"
)

type notificationRepository struct {
	db DB
}

// NewNotificationRepository instantiates the repository over the given querier.
func NewNotificationRepository(db DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (company_id, type, message)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		notification.CompanyID,
		notification.Type,
		notification.Message,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByCompany(ctx context.Context, companyID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	where := "company_id=$1"
	if unreadOnly {
		where += " AND read_at IS NULL"
	}
	query := fmt.Sprintf(`
        SELECT id, company_id, type, message, read_at, created_at
        FROM notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, limit, offset)
	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.CompanyID, &n.Type, &n.Message, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, companyID, id string, at time.Time) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at=$1 WHERE id=$2 AND company_id=$3 AND read_at IS NULL`,
		at, id, companyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
