package domain

import "time"

// Attachment stores the reference returned by the external attachment store.
// The bytes themselves never pass through this service.
type Attachment struct {
	ID         string
	TicketID   string
	FilePath   string
	FileName   string
	UploadedBy string
	CreatedAt  time.Time
}
