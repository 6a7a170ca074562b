package api

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

// memStore is an in-memory stand-in for the Mongo repositories.
type memStore struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
	posts map[string]*domain.Post
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*domain.User{}, posts: map[string]*domain.Post{}}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	c := *user
	c.ID = r.nextID("u")
	r.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	c.Posts = slices.Clone(u.Posts)
	return &c, nil
}

func (r memUsers) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Status = status
	return nil
}

func (r memUsers) AddPost(_ context.Context, userID, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Posts = append(u.Posts, postID)
	return nil
}

func (r memUsers) RemovePost(_ context.Context, userID, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Posts = slices.DeleteFunc(u.Posts, func(id string) bool { return id == postID })
	return nil
}

type memPosts struct{ *memStore }

func (r memPosts) populate(p *domain.Post) *domain.Post {
	c := *p
	if u, ok := r.users[p.Creator.ID]; ok {
		c.Creator.Name = u.Name
	}
	return &c
}

func (r memPosts) Create(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = r.nextID("p")
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = post.CreatedAt
	c := *post
	r.posts[c.ID] = &c
	return nil
}

func (r memPosts) FindByID(_ context.Context, id string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return r.populate(p), nil
}

func (r memPosts) List(_ context.Context, skip, limit int) ([]*domain.Post, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, r.populate(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if skip >= len(all) {
		return []*domain.Post{}, total, nil
	}
	all = all[skip:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r memPosts) Update(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[post.ID]
	if !ok {
		return domain.ErrPostNotFound
	}
	p.Title, p.Content, p.ImageURL = post.Title, post.Content, post.ImageURL
	p.UpdatedAt = time.Now().UTC()
	post.UpdatedAt = p.UpdatedAt
	return nil
}

func (r memPosts) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}
