package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/storage"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// PhotoService stores complaint photos and their metadata.
type PhotoService struct {
	tickets  repository.TicketRepository
	photos   repository.PhotoRepository
	store    storage.ObjectStore
	maxBytes int64
	logger   *zap.Logger
}

// PhotoDependencies bundles collaborators for the photo service.
type PhotoDependencies struct {
	TicketRepo     repository.TicketRepository
	PhotoRepo      repository.PhotoRepository
	Store          storage.ObjectStore
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// PhotoUpload is one uploaded file.
type PhotoUpload struct {
	FileName    string
	ContentType string
	Content     []byte
}

func NewPhotoService(deps PhotoDependencies) *PhotoService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotoService{
		tickets:  deps.TicketRepo,
		photos:   deps.PhotoRepo,
		store:    deps.Store,
		maxBytes: deps.MaxUploadBytes,
		logger:   logger.Named("photos"),
	}
}

// Upload writes the photo to object storage and records it on the ticket.
func (s *PhotoService) Upload(ctx context.Context, ticketID string, upload PhotoUpload) (*domain.Photo, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFound("complaint", ticketID, err)
	}
	if len(upload.Content) == 0 {
		return nil, apperrors.NewValidationError("empty file", nil)
	}
	if s.maxBytes > 0 && int64(len(upload.Content)) > s.maxBytes {
		return nil, apperrors.NewValidationError("file too large", map[string]any{"max_bytes": s.maxBytes})
	}

	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(upload.Content)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewValidationError("only images are accepted", map[string]any{"content_type": contentType})
	}

	fileName := upload.FileName
	if fileName == "" {
		fileName = "photo.jpg"
	}
	key := storage.PhotoKey(ticketID, fileName)
	url, err := s.store.Put(ctx, key, bytes.NewReader(upload.Content), int64(len(upload.Content)), contentType)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	photo := &domain.Photo{
		TicketID:   ticketID,
		StorageKey: key,
		FileName:   fileName,
		MimeType:   contentType,
		SizeBytes:  int64(len(upload.Content)),
		URL:        url,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("photo attached", zap.String("ticket_id", ticketID), zap.String("key", key))
	return photo, nil
}

// List returns the photos of a ticket.
func (s *PhotoService) List(ctx context.Context, ticketID string) ([]domain.Photo, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFound("complaint", ticketID, err)
	}
	photos, err := s.photos.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return photos, nil
}
