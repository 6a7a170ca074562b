package ports

import (
	"context"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

// PostRepository defines persistence for feed posts. Reads return posts with
// Creator.Name populated.
type PostRepository interface {
	// Create inserts the post, assigning ID and timestamps in place.
	Create(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, id string) (*domain.Post, error)
	// List returns posts ordered by createdAt descending, skipping skip and
	// returning at most limit, plus the total count of posts.
	List(ctx context.Context, skip, limit int) ([]*domain.Post, int64, error)
	// Update persists title, content and imageUrl and refreshes UpdatedAt.
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
}
