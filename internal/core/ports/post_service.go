package ports

import (
	"context"
	"io"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

// ImageUpload is an uploaded image file as received from the client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// CreatePostInput carries the data needed to create a post.
type CreatePostInput struct {
	UserID  string
	Title   string `validate:"required"`
	Content string `validate:"required"`
	Image   *ImageUpload
}

// UpdatePostInput carries the data needed to update a post. Image takes
// precedence over ImageURL, the URL of an image already stored.
type UpdatePostInput struct {
	PostID   string
	UserID   string
	Title    string `validate:"required"`
	Content  string `validate:"required"`
	Image    *ImageUpload
	ImageURL string
}

// PostPage is one page of the feed.
type PostPage struct {
	Posts      []*domain.Post
	TotalItems int64
}

// PostService defines the feed use cases.
type PostService interface {
	ListPosts(ctx context.Context, page int) (*PostPage, error)
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	CreatePost(ctx context.Context, input CreatePostInput) (*domain.Post, error)
	UpdatePost(ctx context.Context, input UpdatePostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, postID, userID string) error
}

// StatusService reads and writes the status line of a user.
type StatusService interface {
	GetStatus(ctx context.Context, userID string) (string, error)
	UpdateStatus(ctx context.Context, userID, status string) (string, error)
}
