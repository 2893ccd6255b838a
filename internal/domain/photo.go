package domain

import "time"

// Photo stores metadata for an image attached to a ticket.
type Photo struct {
	ID         string
	TicketID   string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	URL        string
	CreatedAt  time.Time
}
