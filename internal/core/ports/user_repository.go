package ports

import (
	"context"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

// UserRepository defines persistence for user accounts.
type UserRepository interface {
	// Create inserts the user and returns it with its generated ID.
	// Returns domain.ErrUserExists when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// AddPost appends postID to the user's post list.
	AddPost(ctx context.Context, userID, postID string) error
	// RemovePost pulls postID from the user's post list.
	RemovePost(ctx context.Context, userID, postID string) error
}
