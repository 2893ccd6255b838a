package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spec-kit/complaint-service/internal/intake"
)

// maxPhotoBytes matches the Bot API download limit.
const maxPhotoBytes = 20 << 20

// MediaFetcher downloads files sent to the bot.
type MediaFetcher struct {
	api    API
	client *http.Client
}

func NewMediaFetcher(api API, timeout time.Duration) *MediaFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MediaFetcher{api: api, client: &http.Client{Timeout: timeout}}
}

// Fetch implements intake.MediaFetcher.
func (f *MediaFetcher) Fetch(ctx context.Context, media intake.Media) ([]byte, error) {
	url, err := f.api.GetFileDirectURL(media.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", media.FileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: status %d", media.FileID, resp.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxPhotoBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", media.FileID, maxPhotoBytes)
	}
	return content, nil
}
