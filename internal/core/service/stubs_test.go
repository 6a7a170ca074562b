package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// In-memory user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users     map[string]*domain.User
	seq       int
	addErr    error
	removeErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Posts = append([]string(nil), u.Posts...)
	return &c
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("user-%d", r.seq)
	r.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) UpdateStatus(_ context.Context, id, status string) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Status = status
	return nil
}

func (r *stubUserRepo) AddPost(_ context.Context, userID, postID string) error {
	if r.addErr != nil {
		return r.addErr
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Posts = append(u.Posts, postID)
	return nil
}

func (r *stubUserRepo) RemovePost(_ context.Context, userID, postID string) error {
	if r.removeErr != nil {
		return r.removeErr
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	kept := u.Posts[:0]
	for _, id := range u.Posts {
		if id != postID {
			kept = append(kept, id)
		}
	}
	u.Posts = kept
	return nil
}

func (r *stubUserRepo) seed(name, email string) *domain.User {
	r.seq++
	u := &domain.User{ID: fmt.Sprintf("user-%d", r.seq), Name: name, Email: email, Status: domain.DefaultStatus}
	r.users[u.ID] = u
	return cloneUser(u)
}

// ---------------------------------------------------------------------------
// In-memory post repository
// ---------------------------------------------------------------------------

type stubPostRepo struct {
	posts     map[string]*domain.Post
	seq       int
	clock     time.Time
	createErr error
	updateErr error
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{
		posts: make(map[string]*domain.Post),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	return &c
}

func (r *stubPostRepo) Create(_ context.Context, p *domain.Post) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	r.clock = r.clock.Add(time.Minute)
	p.ID = fmt.Sprintf("post-%d", r.seq)
	p.CreatedAt = r.clock
	p.UpdatedAt = r.clock
	r.posts[p.ID] = clonePost(p)
	return nil
}

func (r *stubPostRepo) FindByID(_ context.Context, id string) (*domain.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return clonePost(p), nil
}

func (r *stubPostRepo) List(_ context.Context, skip, limit int) ([]*domain.Post, int64, error) {
	all := make([]*domain.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, clonePost(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if skip >= len(all) {
		return []*domain.Post{}, total, nil
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], total, nil
}

func (r *stubPostRepo) Update(_ context.Context, p *domain.Post) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.posts[p.ID]; !ok {
		return domain.ErrPostNotFound
	}
	r.posts[p.ID] = clonePost(p)
	return nil
}

func (r *stubPostRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.posts[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

// ---------------------------------------------------------------------------
// Image store, cleaner and broadcaster stubs
// ---------------------------------------------------------------------------

type stubImageStore struct {
	saved   []string
	saveErr error
}

func (s *stubImageStore) Save(_ context.Context, filename, _ string, content io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	if _, err := io.ReadAll(content); err != nil {
		return "", err
	}
	url := "images/" + filename
	s.saved = append(s.saved, url)
	return url, nil
}

func (s *stubImageStore) Delete(context.Context, string) error { return nil }

type stubCleaner struct {
	removed []string
}

func (c *stubCleaner) Remove(url string) { c.removed = append(c.removed, url) }

type stubBroadcaster struct {
	events []domain.PostEvent
	err    error
}

func (b *stubBroadcaster) Publish(_ context.Context, e domain.PostEvent) error {
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, e)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type postFixture struct {
	posts       *stubPostRepo
	users       *stubUserRepo
	images      *stubImageStore
	cleaner     *stubCleaner
	broadcaster *stubBroadcaster
	svc         *PostService
}

func newPostFixture() *postFixture {
	f := &postFixture{
		posts:       newStubPostRepo(),
		users:       newStubUserRepo(),
		images:      &stubImageStore{},
		cleaner:     &stubCleaner{},
		broadcaster: &stubBroadcaster{},
	}
	f.svc = NewPostService(f.posts, f.users, f.images, f.cleaner, f.broadcaster, discardLogger)
	return f
}

func pngUpload(name string) *ports.ImageUpload {
	return &ports.ImageUpload{Filename: name, ContentType: "image/png", Content: strings.NewReader("png-bytes")}
}

var errBoom = errors.New("boom")
