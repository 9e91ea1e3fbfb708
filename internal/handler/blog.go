package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/model"
	"github.com/iliyamo/trekker-booking/internal/repository"
)

type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	DeleteBySlug(ctx context.Context, slug string) error
}

type PostStore interface {
	ListPublished(ctx context.Context, categorySlug string) ([]model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, p *model.Post, categoryIDs []uint64) error
	Update(ctx context.Context, p *model.Post, categoryIDs []uint64) error
	Delete(ctx context.Context, id uint64) error
	IncrementViews(ctx context.Context, id uint64) error
	ToggleLike(ctx context.Context, postID, userID uint64) (bool, int, error)
}

type CommentStore interface {
	ListApproved(ctx context.Context, postID uint64) ([]model.Comment, error)
	GetByID(ctx context.Context, id uint64) (*model.Comment, error)
	Create(ctx context.Context, c *model.Comment) error
	Delete(ctx context.Context, id uint64) error
}

// Invalidator drops cached responses for a cache group.
type Invalidator interface {
	Invalidate(ctx context.Context, groups ...string) error
}

// BlogHandler serves categories, posts, likes and comments.
type BlogHandler struct {
	Categories CategoryStore
	Posts      PostStore
	Comments   CommentStore
	Cache      Invalidator
	category   record
	post       record
	comment    record
	log        *zap.Logger
}

func NewBlogHandler(categories CategoryStore, posts PostStore, comments CommentStore, cache Invalidator, log *zap.Logger) *BlogHandler {
	if categories == nil || posts == nil || comments == nil {
		panic("nil repository passed to NewBlogHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BlogHandler{
		Categories: categories,
		Posts:      posts,
		Comments:   comments,
		Cache:      cache,
		category:   record{noun: "category", log: log},
		post:       record{noun: "post", log: log},
		comment:    record{noun: "comment", log: log},
		log:        log,
	}
}

const postsCacheGroup = "posts"

func (h *BlogHandler) postsChanged(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(context.WithoutCancel(c.Request().Context()), postsCacheGroup); err != nil {
		h.log.Warn("cache invalidation failed", zap.String("group", postsCacheGroup), zap.Error(err))
	}
}

func (h *BlogHandler) ListCategories(c echo.Context) error {
	out, err := h.Categories.List(c.Request().Context())
	if err != nil {
		return h.category.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BlogHandler) GetCategory(c echo.Context) error {
	cat, err := h.Categories.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return h.category.fail(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

// CreateCategory derives the slug from the name when none is given.
func (h *BlogHandler) CreateCategory(c echo.Context) error {
	var cat model.Category
	if err := c.Bind(&cat); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required", "field": "name"})
	}
	if cat.Slug == "" {
		cat.Slug = slug.Make(cat.Name)
	} else if !slug.IsSlug(cat.Slug) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug may contain only lowercase letters, digits and hyphens", "field": "slug"})
	}
	if err := h.Categories.Create(c.Request().Context(), &cat); err != nil {
		return h.category.fail(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *BlogHandler) DeleteCategory(c echo.Context) error {
	if err := h.Categories.DeleteBySlug(c.Request().Context(), c.Param("slug")); err != nil {
		return h.category.fail(c, err)
	}
	h.postsChanged(c)
	return c.NoContent(http.StatusNoContent)
}

// ListPosts handles GET /api/posts[?category=slug].
func (h *BlogHandler) ListPosts(c echo.Context) error {
	out, err := h.Posts.ListPublished(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return h.post.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// visiblePost loads a post by slug.  Drafts are visible to their author
// and staff only.
func (h *BlogHandler) visiblePost(c echo.Context) (*model.Post, error) {
	p, err := h.Posts.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return nil, err
	}
	if !p.IsPublished {
		who, ok := caller(c)
		if !ok || !(who.Staff || who.UserID == p.AuthorID) {
			return nil, repository.ErrNotFound
		}
	}
	return p, nil
}

// GetPost handles GET /api/posts/:slug and counts the view.
func (h *BlogHandler) GetPost(c echo.Context) error {
	p, err := h.visiblePost(c)
	if err != nil {
		return h.post.fail(c, err)
	}
	if err := h.Posts.IncrementViews(c.Request().Context(), p.ID); err != nil {
		h.log.Warn("view count not updated", zap.Uint64("post_id", p.ID), zap.Error(err))
	} else {
		p.ViewsCount++
	}
	return c.JSON(http.StatusOK, p)
}

type postInput struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Excerpt     *string  `json:"excerpt"`
	MediaURL    *string  `json:"media_url"`
	IsPublished *bool    `json:"is_published"`
	CategoryIDs []uint64 `json:"category_ids"`
}

// uniqueSlug turns title into a slug not yet used by any post, adding a
// numeric suffix on collision.
func (h *BlogHandler) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for i := 2; i < 50; i++ {
		taken, err := h.Posts.SlugTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}

// CreatePost handles POST /api/posts.  The caller becomes the author.
func (h *BlogHandler) CreatePost(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var in postInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Body) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and body are required"})
	}
	ctx := c.Request().Context()
	s, err := h.uniqueSlug(ctx, in.Title)
	if err != nil {
		return h.post.fail(c, err)
	}
	p := model.Post{
		AuthorID:    who.UserID,
		Title:       in.Title,
		Slug:        s,
		Body:        in.Body,
		Excerpt:     in.Excerpt,
		MediaURL:    in.MediaURL,
		IsPublished: in.IsPublished == nil || *in.IsPublished,
	}
	if err := h.Posts.Create(ctx, &p, in.CategoryIDs); err != nil {
		return h.post.fail(c, err)
	}
	h.postsChanged(c)
	return c.JSON(http.StatusCreated, p)
}

// ownPost loads the post for a write by its author or staff.
func (h *BlogHandler) ownPost(c echo.Context) (*model.Post, error) {
	who, ok := caller(c)
	if !ok {
		return nil, repository.ErrForbidden
	}
	p, err := h.Posts.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return nil, err
	}
	if !who.Staff && who.UserID != p.AuthorID {
		return nil, repository.ErrForbidden
	}
	return p, nil
}

// UpdatePost handles PUT /api/posts/:slug.  The slug never changes.
func (h *BlogHandler) UpdatePost(c echo.Context) error {
	p, err := h.ownPost(c)
	if err != nil {
		return h.post.fail(c, err)
	}
	var in postInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if t := strings.TrimSpace(in.Title); t != "" {
		p.Title = t
	}
	if strings.TrimSpace(in.Body) != "" {
		p.Body = in.Body
	}
	if in.Excerpt != nil {
		p.Excerpt = in.Excerpt
	}
	if in.MediaURL != nil {
		p.MediaURL = in.MediaURL
	}
	if in.IsPublished != nil {
		p.IsPublished = *in.IsPublished
	}
	if err := h.Posts.Update(c.Request().Context(), p, in.CategoryIDs); err != nil {
		return h.post.fail(c, err)
	}
	h.postsChanged(c)
	return c.JSON(http.StatusOK, p)
}

func (h *BlogHandler) DeletePost(c echo.Context) error {
	p, err := h.ownPost(c)
	if err != nil {
		return h.post.fail(c, err)
	}
	if err := h.Posts.Delete(c.Request().Context(), p.ID); err != nil {
		return h.post.fail(c, err)
	}
	h.postsChanged(c)
	return c.NoContent(http.StatusNoContent)
}

// LikePost handles POST /api/posts/:slug/like as a toggle.
func (h *BlogHandler) LikePost(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := h.visiblePost(c)
	if err != nil {
		return h.post.fail(c, err)
	}
	liked, count, err := h.Posts.ToggleLike(c.Request().Context(), p.ID, who.UserID)
	if err != nil {
		return h.post.fail(c, err)
	}
	msg := "Post unliked"
	if liked {
		msg = "Post liked"
	}
	h.postsChanged(c)
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "likes_count": count})
}

// ListComments handles GET /api/posts/:slug/comments.
func (h *BlogHandler) ListComments(c echo.Context) error {
	p, err := h.visiblePost(c)
	if err != nil {
		return h.post.fail(c, err)
	}
	out, err := h.Comments.ListApproved(c.Request().Context(), p.ID)
	if err != nil {
		return h.comment.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateComment handles POST /api/posts/:slug/comments.  A parent_id from
// another post is rejected with 409.
func (h *BlogHandler) CreateComment(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := h.visiblePost(c)
	if err != nil {
		return h.post.fail(c, err)
	}
	var in struct {
		Content  string  `json:"content"`
		ParentID *uint64 `json:"parent_id"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(in.Content) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required", "field": "content"})
	}
	cm := model.Comment{PostID: p.ID, AuthorID: who.UserID, ParentID: in.ParentID, Content: in.Content}
	if err := h.Comments.Create(c.Request().Context(), &cm); err != nil {
		return h.comment.fail(c, err)
	}
	h.postsChanged(c)
	return c.JSON(http.StatusCreated, cm)
}

// DeleteComment handles DELETE /api/comments/:id for the author or staff.
func (h *BlogHandler) DeleteComment(c echo.Context) error {
	who, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "comment")
	}
	ctx := c.Request().Context()
	cm, err := h.Comments.GetByID(ctx, id)
	if err != nil {
		return h.comment.fail(c, err)
	}
	if !who.Staff && who.UserID != cm.AuthorID {
		return h.comment.fail(c, repository.ErrForbidden)
	}
	if err := h.Comments.Delete(ctx, id); err != nil {
		return h.comment.fail(c, err)
	}
	h.postsChanged(c)
	return c.NoContent(http.StatusNoContent)
}
