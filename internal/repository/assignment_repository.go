package repository

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// AssignmentRepository stores the append-only assignment audit trail.
type AssignmentRepository interface {
	Create(ctx context.Context, entry *domain.AssignmentAuditEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentAuditEntry, error)
}

type assignmentRepository struct {
	db DBTX
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(db DBTX) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, entry *domain.AssignmentAuditEntry) error {
	const query = `
        INSERT INTO assignment_audit (ticket_id, assigned_by, assigned_to, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.AssignedBy,
		entry.AssignedTo,
		entry.CreatedAt,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentAuditEntry, error) {
	if !validID(ticketID) {
		return nil, nil
	}
	const query = `
        SELECT id, ticket_id, assigned_by, assigned_to, created_at
        FROM assignment_audit WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentAuditEntry
	for rows.Next() {
		var entry domain.AssignmentAuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.AssignedBy,
			&entry.AssignedTo,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
