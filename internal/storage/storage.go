package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

// ObjectStore keeps uploaded photo bytes.
type ObjectStore interface {
	// Put writes body under key and returns the public URL of the object.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// New builds the store selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// PhotoKey builds a collision-free key for a ticket photo, keeping the
// extension of the uploaded file name.
func PhotoKey(ticketID, fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(fileName, "\\", "/"))))
	if len(ext) > 8 {
		ext = ""
	}
	return fmt.Sprintf("complaints/%s/%s%s", ticketID, uuid.NewString(), ext)
}

func joinURL(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + key
}
