package repository

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// PhotoRepository persists photo metadata; the bytes live in object storage.
type PhotoRepository interface {
	Create(ctx context.Context, photo *domain.Photo) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Photo, error)
}

type photoRepository struct {
	db DBTX
}

// NewPhotoRepository constructs repository.
func NewPhotoRepository(db DBTX) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, photo *domain.Photo) error {
	const query = `
        INSERT INTO ticket_photos (ticket_id, storage_key, file_name, mime_type, size_bytes, url)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		photo.TicketID,
		photo.StorageKey,
		photo.FileName,
		photo.MimeType,
		photo.SizeBytes,
		photo.URL,
	).Scan(&photo.ID, &photo.CreatedAt)
}

func (r *photoRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Photo, error) {
	if !validID(ticketID) {
		return nil, nil
	}
	const query = `
        SELECT id, ticket_id, storage_key, file_name, mime_type, size_bytes, url, created_at
        FROM ticket_photos WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Photo
	for rows.Next() {
		var photo domain.Photo
		if err := rows.Scan(
			&photo.ID,
			&photo.TicketID,
			&photo.StorageKey,
			&photo.FileName,
			&photo.MimeType,
			&photo.SizeBytes,
			&photo.URL,
			&photo.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, photo)
	}
	return result, rows.Err()
}
