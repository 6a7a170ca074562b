package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/core/ports"
	"github.com/socialfeed/feed-api/internal/pkg/metrics"
	"github.com/socialfeed/feed-api/internal/pkg/validate"
)

const msgInvalidPost = "Validation failed, entered data is incorrect."

// acceptedImageTypes lists the upload content types stored as post images.
// Anything else is treated as if no file had been sent.
var acceptedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpg":  {},
	"image/jpeg": {},
}

// PostService runs the feed use cases: listing, reading and the
// create/update/delete mutation flow with image cleanup and broadcast.
type PostService struct {
	posts       ports.PostRepository
	users       ports.UserRepository
	images      ports.ImageStore
	cleaner     ports.ImageCleaner
	broadcaster ports.Broadcaster
	validator   *validate.Validator
	log         zerolog.Logger
}

func NewPostService(
	posts ports.PostRepository,
	users ports.UserRepository,
	images ports.ImageStore,
	cleaner ports.ImageCleaner,
	broadcaster ports.Broadcaster,
	log zerolog.Logger,
) *PostService {
	return &PostService{
		posts:       posts,
		users:       users,
		images:      images,
		cleaner:     cleaner,
		broadcaster: broadcaster,
		validator:   validate.New(),
		log:         log,
	}
}

// ListPosts returns the given 1-based page of the feed, newest first.
// Pages below 1 are treated as the first page.
func (s *PostService) ListPosts(ctx context.Context, page int) (*ports.PostPage, error) {
	if page < 1 {
		page = 1
	}
	posts, total, err := s.posts.List(ctx, (page-1)*domain.PostsPerPage, domain.PostsPerPage)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	return &ports.PostPage{Posts: posts, TotalItems: total}, nil
}

func (s *PostService) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, domain.ErrPostNotFound
	}
	return s.posts.FindByID(ctx, postID)
}

// CreatePost stores the image, inserts the post and links it to its creator.
// If linking fails the post and its image are removed again.
func (s *PostService) CreatePost(ctx context.Context, in ports.CreatePostInput) (*domain.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	if err := s.validator.Struct(in, msgInvalidPost); err != nil {
		return nil, err
	}
	if !acceptedImage(in.Image) {
		return nil, domain.Validation("No image provided.")
	}

	creator, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.images.Save(ctx, in.Image.Filename, in.Image.ContentType, in.Image.Content)
	if err != nil {
		return nil, fmt.Errorf("create post: store image: %w", err)
	}

	post := &domain.Post{
		Title:    in.Title,
		Content:  in.Content,
		ImageURL: imageURL,
		Creator:  creator.Summary(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.cleaner.Remove(imageURL)
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.users.AddPost(ctx, creator.ID, post.ID); err != nil {
		if delErr := s.posts.Delete(ctx, post.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("post_id", post.ID).Str("user_id", creator.ID).
				Msg("post left without creator reference")
		}
		s.cleaner.Remove(imageURL)
		return nil, fmt.Errorf("create post: link creator: %w", err)
	}

	metrics.PostMutationsTotal.WithLabelValues(domain.ActionCreate).Inc()
	s.log.Info().Str("post_id", post.ID).Str("user_id", creator.ID).Msg("post created")

	s.publish(ctx, domain.PostEvent{Action: domain.ActionCreate, Post: post})
	return post, nil
}

// UpdatePost replaces title, content and image of a post owned by the caller.
// A replaced image is removed best-effort after the post was saved.
func (s *PostService) UpdatePost(ctx context.Context, in ports.UpdatePostInput) (*domain.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	if err := s.validator.Struct(in, msgInvalidPost); err != nil {
		return nil, err
	}

	upload := acceptedImage(in.Image)
	imageURL := strings.TrimSpace(in.ImageURL)
	if !upload && (imageURL == "" || imageURL == "undefined") {
		return nil, domain.Validation("No image provided.")
	}

	post, err := s.GetPost(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := post.CheckOwner(in.UserID); err != nil {
		return nil, err
	}
	// Without an upload the post may only keep the image it already has.
	if !upload && imageURL != post.ImageURL {
		return nil, domain.Validation("No image provided.")
	}

	if upload {
		imageURL, err = s.images.Save(ctx, in.Image.Filename, in.Image.ContentType, in.Image.Content)
		if err != nil {
			return nil, fmt.Errorf("update post: store image: %w", err)
		}
	}

	oldURL := post.ImageURL
	post.Title = in.Title
	post.Content = in.Content
	post.ImageURL = imageURL

	if err := s.posts.Update(ctx, post); err != nil {
		if upload {
			s.cleaner.Remove(imageURL)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	if imageURL != oldURL {
		s.log.Debug().Str("post_id", post.ID).Str("image", oldURL).Msg("removing replaced image")
		s.cleaner.Remove(oldURL)
	}

	metrics.PostMutationsTotal.WithLabelValues(domain.ActionUpdate).Inc()
	s.log.Info().Str("post_id", post.ID).Str("user_id", in.UserID).Msg("post updated")

	s.publish(ctx, domain.PostEvent{Action: domain.ActionUpdate, Post: post})
	return post, nil
}

// DeletePost removes a post owned by the caller, unlinks it from the creator
// and schedules removal of its image.
func (s *PostService) DeletePost(ctx context.Context, postID, userID string) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if err := post.CheckOwner(userID); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	// The post is gone at this point; a stale id in the creator's list is
	// logged rather than reported to the caller.
	if err := s.users.RemovePost(ctx, post.Creator.ID, post.ID); err != nil {
		s.log.Error().Err(err).Str("post_id", post.ID).Str("user_id", post.Creator.ID).
			Msg("failed to unlink deleted post from creator")
	}

	s.cleaner.Remove(post.ImageURL)

	metrics.PostMutationsTotal.WithLabelValues(domain.ActionDelete).Inc()
	s.log.Info().Str("post_id", post.ID).Str("user_id", userID).Msg("post deleted")

	s.publish(ctx, domain.PostEvent{Action: domain.ActionDelete, Post: post.ID})
	return nil
}

func (s *PostService) publish(ctx context.Context, event domain.PostEvent) {
	if err := s.broadcaster.Publish(ctx, event); err != nil {
		metrics.BroadcastsTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("action", event.Action).Msg("broadcast failed")
		return
	}
	metrics.BroadcastsTotal.WithLabelValues("ok").Inc()
}

func acceptedImage(img *ports.ImageUpload) bool {
	if img == nil || img.Content == nil {
		return false
	}
	_, ok := acceptedImageTypes[strings.ToLower(img.ContentType)]
	return ok
}
