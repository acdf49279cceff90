package dto

import (
	"time"

	"github.com/printops/servicedesk/internal/domain"
)

// NotifyRequest creates an ad-hoc notification for a company.
type NotifyRequest struct {
	CompanyID string                  `json:"company_id"`
	Type      domain.NotificationType `json:"type"`
	Message   string                  `json:"message"`
}

// NotificationResponse mirrors one stored notification.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	CompanyID string                  `json:"company_id"`
	Type      domain.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	ReadAt    *time.Time              `json:"read_at"`
	CreatedAt time.Time               `json:"created_at"`
}
