package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/lifecycle"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	ticketStripes   = 64
)

// EffectSink accepts the effects of a committed mutation.
type EffectSink interface {
	Run(ctx context.Context, effects []lifecycle.Effect)
}

// ComplaintService runs lifecycle operations against the ticket store.
// Mutations return their effects and, when a sink is configured, hand them
// to it before another mutation of the same ticket in this process can
// commit, so the sink sees each ticket's events in commit order.
type ComplaintService struct {
	repos   repository.Repositories
	uow     repository.UnitOfWork
	effects EffectSink
	logger  *zap.Logger
	now     func() time.Time

	stripes [ticketStripes]sync.Mutex
}

// ComplaintDependencies bundles collaborators for the complaint service.
// Effects may be nil, in which case callers run the returned effects.
type ComplaintDependencies struct {
	Repos      repository.Repositories
	UnitOfWork repository.UnitOfWork
	Effects    EffectSink
	Logger     *zap.Logger
}

// ComplaintFilter describes dashboard listing filters.
type ComplaintFilter struct {
	Status           string
	Hostel           string
	ReporterID       string
	AssignedPorterID string
	Page             int
	PageSize         int
}

// ComplaintPage is one page of a listing.
type ComplaintPage struct {
	Items    []domain.Ticket
	Total    int
	Page     int
	PageSize int
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		repos:   deps.Repos,
		uow:     deps.UnitOfWork,
		effects: deps.Effects,
		logger:  logger.Named("complaints"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// lockTicket serializes commit and effect hand-off for one ticket id.
func (s *ComplaintService) lockTicket(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &s.stripes[h.Sum32()%ticketStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *ComplaintService) emit(ctx context.Context, effects []lifecycle.Effect) {
	if s.effects != nil {
		s.effects.Run(ctx, effects)
	}
}

// Submit validates the draft and stores a new ticket in status reported.
func (s *ComplaintService) Submit(ctx context.Context, draft domain.ComplaintDraft) (*domain.Ticket, []lifecycle.Effect, error) {
	now := s.now()
	ticket, err := lifecycle.Open(draft, now)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repos.Tickets.Create(ctx, ticket); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	s.logger.Info("complaint submitted",
		zap.String("ticket_id", ticket.ID),
		zap.String("hostel", ticket.Hostel),
		zap.String("severity", string(ticket.Severity)))
	effects := lifecycle.Created(ticket, now)
	s.emit(ctx, effects)
	return ticket, effects, nil
}

// Get loads a ticket by id.
func (s *ComplaintService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("complaint", id, err)
	}
	return ticket, nil
}

// List returns a page of tickets, newest first.
func (s *ComplaintService) List(ctx context.Context, filter ComplaintFilter) (*ComplaintPage, error) {
	var repoFilter repository.TicketFilter
	if filter.Status != "" {
		status := domain.TicketStatus(filter.Status)
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": filter.Status})
		}
		repoFilter.Status = &status
	}
	if filter.Hostel != "" {
		hostel := filter.Hostel
		repoFilter.Hostel = &hostel
	}
	if filter.ReporterID != "" {
		reporter := filter.ReporterID
		repoFilter.ReporterID = &reporter
	}
	if filter.AssignedPorterID != "" {
		porter := filter.AssignedPorterID
		repoFilter.AssignedPorterID = &porter
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	repoFilter.Limit = size
	repoFilter.Offset = (page - 1) * size

	items, err := s.repos.Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.repos.Tickets.Count(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &ComplaintPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// UpdateStatus applies a status transition under a row lock.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor lifecycle.Actor, id string, next domain.TicketStatus) (*lifecycle.Outcome, error) {
	unlock := s.lockTicket(id)
	defer unlock()

	var outcome *lifecycle.Outcome
	err := s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return notFound("complaint", id, err)
		}
		result, err := lifecycle.Transition(ticket, actor, next, s.now())
		if err != nil {
			return err
		}
		if err := repos.Tickets.Update(ctx, result.Ticket); err != nil {
			return err
		}
		outcome = result
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.emit(ctx, outcome.Effects)
	s.logger.Info("complaint status changed",
		zap.String("ticket_id", id),
		zap.String("from", string(outcome.StatusChange.From)),
		zap.String("to", string(outcome.StatusChange.To)),
		zap.String("actor_id", actor.ID))
	return outcome, nil
}

// Assign sets the assigned porter and records the audit entry in the same
// transaction. Re-assigning the current porter changes nothing.
func (s *ComplaintService) Assign(ctx context.Context, actor lifecycle.Actor, id, porterID string) (*lifecycle.Outcome, error) {
	if porterID == "" {
		return nil, apperrors.NewValidationError("assigned_porter_id required", nil)
	}
	if !lifecycle.MayAssign(actor.Role, actor.ID, porterID) {
		return nil, apperrors.NewForbidden("porters may only assign themselves", lifecycle.ErrNotPermitted)
	}

	unlock := s.lockTicket(id)
	defer unlock()

	var outcome *lifecycle.Outcome
	err := s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		porter, err := repos.Porters.GetByID(ctx, porterID)
		if err != nil {
			return notFound("porter", porterID, err)
		}
		if !porter.Active || (porter.Role != domain.RolePorter && porter.Role != domain.RoleAdmin) {
			return apperrors.NewNotFound("porter", map[string]any{"id": porterID})
		}

		ticket, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return notFound("complaint", id, err)
		}
		result, err := lifecycle.Assign(ticket, actor, porterID, s.now())
		if err != nil {
			return err
		}
		if result.Changed() {
			if err := repos.Tickets.Update(ctx, result.Ticket); err != nil {
				return err
			}
			if err := repos.Assignments.Create(ctx, result.Audit); err != nil {
				return err
			}
		}
		outcome = result
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.emit(ctx, outcome.Effects)
	if outcome.Changed() {
		s.logger.Info("complaint assigned",
			zap.String("ticket_id", id),
			zap.String("porter_id", porterID),
			zap.String("actor_id", actor.ID))
	}
	return outcome, nil
}

// ListAssignments returns the audit trail for a ticket, oldest first.
func (s *ComplaintService) ListAssignments(ctx context.Context, id string) ([]domain.AssignmentAuditEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.repos.Assignments.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func notFound(resource, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
