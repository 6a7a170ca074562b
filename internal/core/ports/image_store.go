package ports

import (
	"context"
	"io"
)

// ImageStore persists uploaded images and returns the URL stored on posts.
type ImageStore interface {
	Save(ctx context.Context, filename, contentType string, content io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// ImageCleaner schedules best-effort removal of an image no longer referenced
// by any post.
type ImageCleaner interface {
	Remove(url string)
}
