package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/core/ports"
)

// imageField is the multipart field carrying the post image.
const imageField = "image"

// errorBody documents the error envelope written by the API error handler.
type errorBody struct {
	Message string              `json:"message"`
	Data    []domain.FieldError `json:"data"`
}

// FeedHandler handles the post and status routes under /feed.
type FeedHandler struct {
	posts  ports.PostService
	status ports.StatusService
}

func NewFeedHandler(posts ports.PostService, status ports.StatusService) *FeedHandler {
	return &FeedHandler{posts: posts, status: status}
}

// --- Request / Response types ---

// postRequest binds both multipart forms and JSON bodies. Image is the URL
// of an already stored image, sent when the file is not replaced.
type postRequest struct {
	Title   string `json:"title"   form:"title"`
	Content string `json:"content" form:"content"`
	Image   string `json:"image"   form:"image"`
}

type listPostsResponse struct {
	Message    string         `json:"message"`
	Posts      []*domain.Post `json:"posts"`
	TotalItems int64          `json:"totalItems"`
}

type createPostResponse struct {
	Message string         `json:"message"`
	Post    *domain.Post   `json:"post"`
	Creator domain.Creator `json:"creator"`
}

type postResponse struct {
	Message string       `json:"message"`
	Post    *domain.Post `json:"post"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ListPosts returns one page of the feed.
//
// @Summary      List posts
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Page number (1-based)"
// @Success      200   {object}  listPostsResponse
// @Failure      401   {object}  errorBody
// @Router       /feed/posts [get]
func (h *FeedHandler) ListPosts(c echo.Context) error {
	if _, err := ctxUserID(c); err != nil {
		return err
	}

	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil {
		page = 1
	}

	result, err := h.posts.ListPosts(c.Request().Context(), page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listPostsResponse{
		Message:    "Fetched posts successfully.",
		Posts:      result.Posts,
		TotalItems: result.TotalItems,
	})
}

// CreatePost creates a post from a multipart form with an image file.
//
// @Summary      Create post
// @Tags         feed
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        title    formData  string  true  "Title"
// @Param        content  formData  string  true  "Content"
// @Param        image    formData  file    true  "Image (png, jpg, jpeg)"
// @Success      201      {object}  createPostResponse
// @Failure      401      {object}  errorBody
// @Failure      422      {object}  errorBody
// @Router       /feed/post [post]
func (h *FeedHandler) CreatePost(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req postRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	image, closeImage, err := formImage(c)
	if err != nil {
		return err
	}
	defer closeImage()

	post, err := h.posts.CreatePost(c.Request().Context(), ports.CreatePostInput{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Image:   image,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createPostResponse{
		Message: "Post created successfully!",
		Post:    post,
		Creator: post.Creator,
	})
}

// GetPost returns a single post.
//
// @Summary      Get post
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path      string  true  "Post ID"
// @Success      200     {object}  postResponse
// @Failure      401     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Router       /feed/post/{postId} [get]
func (h *FeedHandler) GetPost(c echo.Context) error {
	if _, err := ctxUserID(c); err != nil {
		return err
	}

	post, err := h.posts.GetPost(c.Request().Context(), c.Param("postId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, postResponse{Message: "Post fetched.", Post: post})
}

// UpdatePost replaces a post owned by the caller. The image is either a new
// file or the URL of the current one in the "image" field.
//
// @Summary      Update post
// @Tags         feed
// @Accept       mpfd,json
// @Produce      json
// @Security     BearerAuth
// @Param        postId   path      string  true   "Post ID"
// @Param        title    formData  string  true   "Title"
// @Param        content  formData  string  true   "Content"
// @Param        image    formData  file    false  "Replacement image"
// @Success      200      {object}  postResponse
// @Failure      401      {object}  errorBody
// @Failure      403      {object}  errorBody
// @Failure      404      {object}  errorBody
// @Failure      422      {object}  errorBody
// @Router       /feed/post/{postId} [put]
func (h *FeedHandler) UpdatePost(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req postRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	image, closeImage, err := formImage(c)
	if err != nil {
		return err
	}
	defer closeImage()

	post, err := h.posts.UpdatePost(c.Request().Context(), ports.UpdatePostInput{
		PostID:   c.Param("postId"),
		UserID:   userID,
		Title:    req.Title,
		Content:  req.Content,
		Image:    image,
		ImageURL: req.Image,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, postResponse{Message: "Post updated!", Post: post})
}

// DeletePost deletes a post owned by the caller.
//
// @Summary      Delete post
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        postId  path      string  true  "Post ID"
// @Success      200     {object}  messageResponse
// @Failure      401     {object}  errorBody
// @Failure      403     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Router       /feed/post/{postId} [delete]
func (h *FeedHandler) DeletePost(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.posts.DeletePost(c.Request().Context(), c.Param("postId"), userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Post deleted!"})
}

// GetStatus returns the caller's status line.
//
// @Summary      Get status
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statusResponse
// @Failure      401  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /feed/status [get]
func (h *FeedHandler) GetStatus(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	status, err := h.status.GetStatus(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{Message: "Status retrieved successfully.", Status: status})
}

// UpdateStatus replaces the caller's status line.
//
// @Summary      Update status
// @Tags         feed
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      statusRequest  true  "New status"
// @Success      200   {object}  statusResponse
// @Failure      401   {object}  errorBody
// @Failure      422   {object}  errorBody
// @Router       /feed/status [put]
func (h *FeedHandler) UpdateStatus(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	status, err := h.status.UpdateStatus(c.Request().Context(), userID, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{Message: "Status updated successfully.", Status: status})
}

// formImage opens the uploaded image, if any. The returned close function
// is always safe to call.
func formImage(c echo.Context) (*ports.ImageUpload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload: %w", err)
	}

	return &ports.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	}, func() { _ = f.Close() }, nil
}
