package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// PorterRepository handles persistence for porters and administrators.
type PorterRepository interface {
	Create(ctx context.Context, porter *domain.Porter) error
	GetByID(ctx context.Context, id string) (*domain.Porter, error)
	GetByEmail(ctx context.Context, email string) (*domain.Porter, error)
	List(ctx context.Context, filter PorterFilter) ([]domain.Porter, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

// PorterFilter defines query params for porter listing.
type PorterFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

const porterColumns = `id, full_name, email, phone, password_hash, role, active, created_at, updated_at`

type porterRepository struct {
	db DBTX
}

// NewPorterRepository instantiates the repository.
func NewPorterRepository(db DBTX) PorterRepository {
	return &porterRepository{db: db}
}

func (r *porterRepository) Create(ctx context.Context, porter *domain.Porter) error {
	const query = `
        INSERT INTO porters (full_name, email, phone, password_hash, role, active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		porter.FullName,
		porter.Email,
		porter.Phone,
		porter.PasswordHash,
		porter.Role,
		porter.Active,
	).Scan(&porter.ID, &porter.CreatedAt, &porter.UpdatedAt)
}

func (r *porterRepository) GetByID(ctx context.Context, id string) (*domain.Porter, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanPorter(r.db.QueryRow(ctx, `SELECT `+porterColumns+` FROM porters WHERE id=$1`, id))
}

func (r *porterRepository) GetByEmail(ctx context.Context, email string) (*domain.Porter, error) {
	return scanPorter(r.db.QueryRow(ctx, `SELECT `+porterColumns+` FROM porters WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *porterRepository) List(ctx context.Context, filter PorterFilter) ([]domain.Porter, error) {
	query := `SELECT ` + porterColumns + ` FROM porters`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY full_name ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Porter
	for rows.Next() {
		porter, err := scanPorter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *porter)
	}
	return result, rows.Err()
}

func (r *porterRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM porters WHERE role=$1`, role).Scan(&total)
	return total, err
}

func scanPorter(row pgx.Row) (*domain.Porter, error) {
	var porter domain.Porter
	if err := row.Scan(
		&porter.ID,
		&porter.FullName,
		&porter.Email,
		&porter.Phone,
		&porter.PasswordHash,
		&porter.Role,
		&porter.Active,
		&porter.CreatedAt,
		&porter.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &porter, nil
}
