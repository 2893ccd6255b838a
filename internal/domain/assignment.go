package domain

import "time"

// AssignmentAuditEntry is an append-only record of a porter assignment.
type AssignmentAuditEntry struct {
	ID         string
	TicketID   string
	AssignedBy string
	AssignedTo string
	CreatedAt  time.Time
}
