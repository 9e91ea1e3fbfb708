package model

import "time"

type Category struct {
	ID          uint64    `json:"id"`          // categories.id
	Name        string    `json:"name"`        // categories.name
	Slug        string    `json:"slug"`        // categories.slug
	Description *string   `json:"description"` // categories.description (nullable)
	CreatedAt   time.Time `json:"created_at"`  // categories.created_at
}

// Post is a blog entry.  LikesCount and CommentsCount are computed by the
// repository, they have no column of their own.
type Post struct {
	ID            uint64     `json:"id"`           // posts.id
	AuthorID      uint64     `json:"author_id"`    // posts.author_id
	Title         string     `json:"title"`        // posts.title
	Slug          string     `json:"slug"`         // posts.slug
	Body          string     `json:"body"`         // posts.body
	Excerpt       *string    `json:"excerpt"`      // posts.excerpt (nullable)
	MediaURL      *string    `json:"media_url"`    // posts.media_url (nullable)
	ViewsCount    int        `json:"views_count"`  // posts.views_count
	IsPublished   bool       `json:"is_published"` // posts.is_published
	CreatedAt     time.Time  `json:"created_at"`   // posts.created_at
	UpdatedAt     time.Time  `json:"updated_at"`   // posts.updated_at
	Categories    []Category `json:"categories"`
	LikesCount    int        `json:"likes_count"`
	CommentsCount int        `json:"comments_count"`
}

// Comment belongs to a post and optionally replies to another comment.
type Comment struct {
	ID         uint64    `json:"id"`          // comments.id
	PostID     uint64    `json:"post_id"`     // comments.post_id
	AuthorID   uint64    `json:"author_id"`   // comments.author_id
	ParentID   *uint64   `json:"parent_id"`   // comments.parent_id (nullable)
	Content    string    `json:"content"`     // comments.content
	IsApproved bool      `json:"is_approved"` // comments.is_approved
	CreatedAt  time.Time `json:"created_at"`  // comments.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // comments.updated_at
	Replies    []Comment `json:"replies,omitempty"`
}
