package repository

import (
	"context"

	"github.com/printops/servicedesk/internal/domain"
)

type attachmentRepository struct {
	db DB
}

// NewAttachmentRepository instantiates the repository over the given querier.
func NewAttachmentRepository(db DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, file_path, file_name, uploaded_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.FilePath,
		attachment.FileName,
		attachment.UploadedBy,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, file_path, file_name, uploaded_by, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(&att.ID, &att.TicketID, &att.FilePath, &att.FileName, &att.UploadedBy, &att.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}
