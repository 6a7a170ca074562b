package ports

import (
	"context"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

// Broadcaster fans a post change out to every connected listener. Delivery
// is best-effort: there is no replay and slow listeners may miss events.
type Broadcaster interface {
	Publish(ctx context.Context, event domain.PostEvent) error
}
