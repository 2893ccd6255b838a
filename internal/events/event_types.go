package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates the lifecycle events pushed to observers.
type EventType string

const (
	EventNewTicket        EventType = "new_ticket"
	EventStatusUpdate     EventType = "status_update"
	EventAssignmentUpdate EventType = "assignment_update"
)

// Event is the wire shape sent to observers and external channels.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"event_type"`
	TicketID  string         `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// NewTicketEvent describes a freshly created ticket.
func NewTicketEvent(ticket *domain.Ticket, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventNewTicket,
		TicketID:  ticket.ID,
		Timestamp: at,
		Data: map[string]any{
			"complaint_id": ticket.ID,
			"hostel":       ticket.Hostel,
			"room_number":  ticket.RoomNumber,
			"category":     ticket.Category,
			"severity":     ticket.Severity,
			"reporter_id":  ticket.ReporterID,
		},
	}
}

// StatusUpdateEvent describes a committed status transition.
func StatusUpdateEvent(ticketID string, from, to domain.TicketStatus, updatedBy string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventStatusUpdate,
		TicketID:  ticketID,
		Timestamp: at,
		Data: map[string]any{
			"complaint_id": ticketID,
			"old_status":   from,
			"new_status":   to,
			"updated_by":   updatedBy,
		},
	}
}

// AssignmentUpdateEvent describes a committed porter assignment.
func AssignmentUpdateEvent(ticketID string, from *string, to, assignedBy string, at time.Time) Event {
	data := map[string]any{
		"complaint_id": ticketID,
		"assigned_to":  to,
		"assigned_by":  assignedBy,
	}
	if from != nil {
		data["previous_porter_id"] = *from
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      EventAssignmentUpdate,
		TicketID:  ticketID,
		Timestamp: at,
		Data:      data,
	}
}
