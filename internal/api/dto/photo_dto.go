package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// PhotoResponse metadata.
type PhotoResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPhotoResponse(p *domain.Photo) PhotoResponse {
	return PhotoResponse{
		ID:        p.ID,
		FileName:  p.FileName,
		MimeType:  p.MimeType,
		SizeBytes: p.SizeBytes,
		URL:       p.URL,
		CreatedAt: p.CreatedAt,
	}
}
