// Package lifecycle holds the authoritative ticket state machine. It is
// effect-free: every operation returns the mutated ticket copy plus the
// effects the caller must run once the change is committed.
package lifecycle

import (
	"errors"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

var (
	// ErrInvalidTransition marks a status change missing from the table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotPermitted marks an operation the actor's role does not allow.
	ErrNotPermitted = errors.New("operation not permitted for role")
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusReported:   {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusReported},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
	domain.TicketStatusRejected:   {},
}

// CanTransition reports whether current -> next is in the transition table.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedTargets returns the destinations reachable from current.
func AllowedTargets(current domain.TicketStatus) []domain.TicketStatus {
	return append([]domain.TicketStatus(nil), allowedTransitions[current]...)
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status domain.TicketStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// StatusChange is the before/after of a committed status transition.
type StatusChange struct {
	From domain.TicketStatus
	To   domain.TicketStatus
}

// AssignmentChange is the before/after of a porter assignment.
type AssignmentChange struct {
	From *string
	To   string
}

// Outcome is the result of a lifecycle operation.
type Outcome struct {
	Ticket           *domain.Ticket
	StatusChange     *StatusChange
	AssignmentChange *AssignmentChange
	Audit            *domain.AssignmentAuditEntry
	Effects          []Effect
}

// Changed reports whether any mutable field moved.
func (o *Outcome) Changed() bool {
	return o != nil && (o.StatusChange != nil || o.AssignmentChange != nil)
}

// Open validates a draft and builds the initial ticket in the reported state.
func Open(draft domain.ComplaintDraft, now time.Time) (*domain.Ticket, error) {
	details := map[string]any{}
	if draft.ReporterID == "" {
		details["reporter_id"] = "required"
	}
	if !domain.IsHostel(draft.Hostel) {
		details["hostel"] = "unknown hostel"
	}
	room, wing, ok := domain.NormalizeRoomNumber(draft.RoomNumber)
	if !ok {
		details["room_number"] = "must be one letter A-H followed by three digits"
	}
	if _, ok := domain.CategoryByKey(draft.Category); !ok {
		details["category"] = "unknown category"
	}
	if !domain.ValidDescription(draft.Description) {
		details["description"] = "must be between 10 and 500 characters"
	}
	if !domain.IsSeverity(draft.Severity) {
		details["severity"] = "must be low, medium or high"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid complaint", details)
	}

	return &domain.Ticket{
		ReporterID:  draft.ReporterID,
		Hostel:      draft.Hostel,
		RoomNumber:  room,
		Wing:        wing,
		Category:    draft.Category,
		Description: draft.Description,
		Severity:    draft.Severity,
		Status:      domain.TicketStatusReported,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Created returns the effects for a ticket that was just persisted.
func Created(ticket *domain.Ticket, now time.Time) []Effect {
	event := events.NewTicketEvent(ticket, now)
	return []Effect{
		{Kind: EffectBroadcast, Event: event, TargetRole: domain.RoleAdmin},
		{Kind: EffectNotify, Event: event},
	}
}

// Transition moves ticket to next on behalf of actor. The table is checked
// before the actor, so a pair outside it is always an invalid transition.
// The input ticket is not modified.
func Transition(ticket *domain.Ticket, actor Actor, next domain.TicketStatus, now time.Time) (*Outcome, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}
	if !CanTransition(ticket.Status, next) {
		return nil, apperrors.NewInvalidTransition("invalid status transition", map[string]any{
			"from":    ticket.Status,
			"to":      next,
			"allowed": AllowedTargets(ticket.Status),
		}, ErrInvalidTransition)
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RolePorter {
		return nil, apperrors.NewForbidden("role may not change ticket status", ErrNotPermitted)
	}
	if next == domain.TicketStatusClosed && !MayClose(actor.Role) {
		return nil, apperrors.NewForbidden("only admins may close tickets", ErrNotPermitted)
	}

	updated := ticket.Clone()
	updated.Status = next
	updated.UpdatedAt = now
	change := &StatusChange{From: ticket.Status, To: next}
	event := events.StatusUpdateEvent(ticket.ID, change.From, change.To, actor.ID, now)
	return &Outcome{
		Ticket:       updated,
		StatusChange: change,
		Effects: []Effect{
			{Kind: EffectBroadcast, Event: event},
			{Kind: EffectNotify, Event: event},
		},
	}, nil
}

// Assign sets the assigned porter on behalf of actor. Re-assigning the
// current porter is a no-op and yields no audit entry.
func Assign(ticket *domain.Ticket, actor Actor, porterID string, now time.Time) (*Outcome, error) {
	if porterID == "" {
		return nil, apperrors.NewValidationError("assigned_porter_id required", nil)
	}
	if !MayAssign(actor.Role, actor.ID, porterID) {
		return nil, apperrors.NewForbidden("porters may only assign themselves", ErrNotPermitted)
	}
	if ticket.AssignedPorterID != nil && *ticket.AssignedPorterID == porterID {
		return &Outcome{Ticket: ticket.Clone()}, nil
	}

	updated := ticket.Clone()
	previous := updated.AssignedPorterID
	target := porterID
	updated.AssignedPorterID = &target
	updated.UpdatedAt = now

	event := events.AssignmentUpdateEvent(ticket.ID, previous, porterID, actor.ID, now)
	return &Outcome{
		Ticket:           updated,
		AssignmentChange: &AssignmentChange{From: previous, To: porterID},
		Audit: &domain.AssignmentAuditEntry{
			TicketID:   ticket.ID,
			AssignedBy: actor.ID,
			AssignedTo: porterID,
			CreatedAt:  now,
		},
		Effects: []Effect{
			{Kind: EffectBroadcast, Event: event},
			{Kind: EffectNotify, Event: event},
		},
	}, nil
}
