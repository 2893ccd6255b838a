package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// MockStore is a thread-safe in-memory implementation of the repositories
// and repository.UnitOfWork for testing. InTx calls are serialized, which
// stands in for row locks, and roll back on error.
type MockStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	Tickets     map[string]domain.Ticket
	Porters     map[string]domain.Porter
	Assignments []domain.AssignmentAuditEntry
	Photos      []domain.Photo

	AssignmentCreateErr error
	TicketUpdateErr     error
}

func NewMockStore() *MockStore {
	return &MockStore{
		Tickets: make(map[string]domain.Ticket),
		Porters: make(map[string]domain.Porter),
	}
}

// Repositories returns repositories reading and writing this store.
func (m *MockStore) Repositories() repository.Repositories {
	return repository.Repositories{
		Tickets:     &mockTickets{m},
		Porters:     &mockPorters{m},
		Assignments: &mockAssignments{m},
		Photos:      &mockPhotos{m},
	}
}

func (m *MockStore) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	tickets := make(map[string]domain.Ticket, len(m.Tickets))
	for k, v := range m.Tickets {
		tickets[k] = *v.Clone()
	}
	assignments := append([]domain.AssignmentAuditEntry(nil), m.Assignments...)
	photos := append([]domain.Photo(nil), m.Photos...)
	m.mu.Unlock()

	if err := fn(ctx, m.Repositories()); err != nil {
		m.mu.Lock()
		m.Tickets = tickets
		m.Assignments = assignments
		m.Photos = photos
		m.mu.Unlock()
		return err
	}
	return nil
}

// AddPorter seeds a porter and returns its id.
func (m *MockStore) AddPorter(name string, role domain.Role, active bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	now := time.Now().UTC()
	m.Porters[id] = domain.Porter{ID: id, FullName: name, Role: role, Active: active, CreatedAt: now, UpdatedAt: now}
	return id
}

// AssignmentsFor returns the audit entries recorded for ticketID.
func (m *MockStore) AssignmentsFor(ticketID string) []domain.AssignmentAuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AssignmentAuditEntry
	for _, entry := range m.Assignments {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out
}

type mockTickets struct{ m *MockStore }

func (r *mockTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ticket.ID = uuid.NewString()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.m.Tickets[ticket.ID] = *ticket.Clone()
	return nil
}

func (r *mockTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.TicketUpdateErr != nil {
		return r.m.TicketUpdateErr
	}
	if _, ok := r.m.Tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.m.Tickets[ticket.ID] = *ticket.Clone()
	return nil
}

func (r *mockTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ticket, ok := r.m.Tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.Clone(), nil
}

func (r *mockTickets) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *mockTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	matched := r.filter(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return nil, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

func (r *mockTickets) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	return len(r.filter(filter)), nil
}

func (r *mockTickets) filter(filter repository.TicketFilter) []domain.Ticket {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.m.Tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Hostel != nil && t.Hostel != *filter.Hostel {
			continue
		}
		if filter.ReporterID != nil && t.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.AssignedPorterID != nil && (t.AssignedPorterID == nil || *t.AssignedPorterID != *filter.AssignedPorterID) {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type mockPorters struct{ m *MockStore }

func (r *mockPorters) Create(_ context.Context, porter *domain.Porter) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	porter.ID = uuid.NewString()
	porter.CreatedAt = time.Now().UTC()
	porter.UpdatedAt = porter.CreatedAt
	r.m.Porters[porter.ID] = *porter
	return nil
}

func (r *mockPorters) GetByID(_ context.Context, id string) (*domain.Porter, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	porter, ok := r.m.Porters[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &porter, nil
}

func (r *mockPorters) GetByEmail(_ context.Context, email string) (*domain.Porter, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, porter := range r.m.Porters {
		if porter.Email != nil && strings.EqualFold(*porter.Email, email) {
			return &porter, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *mockPorters) List(_ context.Context, filter repository.PorterFilter) ([]domain.Porter, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Porter
	for _, porter := range r.m.Porters {
		if filter.Role != nil && porter.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && porter.Active != *filter.Active {
			continue
		}
		out = append(out, porter)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (r *mockPorters) CountByRole(_ context.Context, role domain.Role) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, porter := range r.m.Porters {
		if porter.Role == role {
			n++
		}
	}
	return n, nil
}

type mockAssignments struct{ m *MockStore }

func (r *mockAssignments) Create(_ context.Context, entry *domain.AssignmentAuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.AssignmentCreateErr != nil {
		return r.m.AssignmentCreateErr
	}
	entry.ID = uuid.NewString()
	r.m.Assignments = append(r.m.Assignments, *entry)
	return nil
}

func (r *mockAssignments) ListByTicket(_ context.Context, ticketID string) ([]domain.AssignmentAuditEntry, error) {
	return r.m.AssignmentsFor(ticketID), nil
}

type mockPhotos struct{ m *MockStore }

func (r *mockPhotos) Create(_ context.Context, photo *domain.Photo) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	photo.ID = uuid.NewString()
	photo.CreatedAt = time.Now().UTC()
	r.m.Photos = append(r.m.Photos, *photo)
	return nil
}

func (r *mockPhotos) ListByTicket(_ context.Context, ticketID string) ([]domain.Photo, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Photo
	for _, photo := range r.m.Photos {
		if photo.TicketID == ticketID {
			out = append(out, photo)
		}
	}
	return out, nil
}
