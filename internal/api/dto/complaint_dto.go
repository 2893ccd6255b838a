package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// SubmitComplaintRequest is the payload sent by the intake bot.
type SubmitComplaintRequest struct {
	ReporterID  string `json:"reporter_id"`
	Hostel      string `json:"hostel"`
	RoomNumber  string `json:"room_number"`
	Wing        string `json:"wing"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Draft converts the payload for the lifecycle.
func (r SubmitComplaintRequest) Draft() domain.ComplaintDraft {
	return domain.ComplaintDraft{
		ReporterID:  r.ReporterID,
		Hostel:      r.Hostel,
		RoomNumber:  r.RoomNumber,
		Wing:        r.Wing,
		Category:    r.Category,
		Description: r.Description,
		Severity:    domain.Severity(r.Severity),
	}
}

// SubmitComplaintResponse acknowledges a stored complaint.
type SubmitComplaintResponse struct {
	ComplaintID string              `json:"complaint_id"`
	Status      domain.TicketStatus `json:"status"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssignedPorterID string `json:"assigned_porter_id"`
}

// ComplaintResponse is the full ticket view.
type ComplaintResponse struct {
	ID               string              `json:"id"`
	ReporterID       string              `json:"reporter_id"`
	Hostel           string              `json:"hostel"`
	RoomNumber       string              `json:"room_number"`
	Wing             string              `json:"wing"`
	Category         string              `json:"category"`
	CategoryLabel    string              `json:"category_label,omitempty"`
	Description      string              `json:"description"`
	Severity         domain.Severity     `json:"severity"`
	Status           domain.TicketStatus `json:"status"`
	AssignedPorterID *string             `json:"assigned_porter_id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// PageMeta describes list pagination.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// AssignmentResponse is one audit trail entry.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	AssignedBy string    `json:"assigned_by"`
	AssignedTo string    `json:"assigned_to"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewComplaintResponse maps a ticket.
func NewComplaintResponse(ticket *domain.Ticket) ComplaintResponse {
	resp := ComplaintResponse{
		ID:               ticket.ID,
		ReporterID:       ticket.ReporterID,
		Hostel:           ticket.Hostel,
		RoomNumber:       ticket.RoomNumber,
		Wing:             ticket.Wing,
		Category:         ticket.Category,
		Description:      ticket.Description,
		Severity:         ticket.Severity,
		Status:           ticket.Status,
		AssignedPorterID: ticket.AssignedPorterID,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
	if category, ok := domain.CategoryByKey(ticket.Category); ok {
		resp.CategoryLabel = category.Label
	}
	return resp
}

// NewAssignmentResponses maps audit entries.
func NewAssignmentResponses(entries []domain.AssignmentAuditEntry) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, AssignmentResponse{
			ID:         entry.ID,
			AssignedBy: entry.AssignedBy,
			AssignedTo: entry.AssignedTo,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return out
}
