package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusReported   TicketStatus = "reported"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusRejected   TicketStatus = "rejected"
)

// AllTicketStatuses lists every known status in display order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusReported,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusRejected,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range AllTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Severity enumerates how urgent a complaint is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Ticket is the aggregate for a maintenance complaint.
type Ticket struct {
	ID               string
	ReporterID       string
	Hostel           string
	RoomNumber       string
	Wing             string
	Category         string
	Description      string
	Severity         Severity
	Status           TicketStatus
	AssignedPorterID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	if t.AssignedPorterID != nil {
		id := *t.AssignedPorterID
		cp.AssignedPorterID = &id
	}
	return &cp
}

// ComplaintDraft accumulates intake fields before a ticket exists.
type ComplaintDraft struct {
	ReporterID  string   `json:"reporter_id"`
	Hostel      string   `json:"hostel"`
	RoomNumber  string   `json:"room_number"`
	Wing        string   `json:"wing"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}
