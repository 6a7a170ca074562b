package domain

import "time"

// PostsPerPage is the fixed page size of the feed listing.
const PostsPerPage = 2

// Creator is the populated owner reference of a post.
type Creator struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// Post is a feed entry. Creator.ID never changes after creation.
type Post struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	Creator   Creator   `json:"creator"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CheckOwner fails with ErrForbidden unless userID created the post.
func (p *Post) CheckOwner(userID string) error {
	if p.Creator.ID != userID {
		return Forbidden("Not Authorized")
	}
	return nil
}
