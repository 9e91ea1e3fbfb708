package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/trekker-booking/internal/model"
)

type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

const commentCols = `id, post_id, author_id, parent_id, content, is_approved, created_at, updated_at`

func scanComment(s scanner, c *model.Comment) error {
	var parent sql.NullInt64
	if err := s.Scan(&c.ID, &c.PostID, &c.AuthorID, &parent, &c.Content, &c.IsApproved, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	if parent.Valid {
		v := uint64(parent.Int64)
		c.ParentID = &v
	}
	return nil
}

// ListApproved returns the approved top-level comments of a post, oldest
// first, each carrying its approved replies.
func (r *CommentRepo) ListApproved(ctx context.Context, postID uint64) ([]model.Comment, error) {
	const q = `SELECT ` + commentCols + ` FROM comments WHERE post_id = ? AND is_approved = 1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := scanComment(rows, &c); err != nil {
			return nil, err
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return threadComments(all), nil
}

// threadComments nests replies under their parents.  Input must be
// ordered oldest first; replies whose parent is missing are dropped.
func threadComments(all []model.Comment) []model.Comment {
	children := map[uint64][]model.Comment{}
	for _, c := range all {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}
	var attach func(c model.Comment) model.Comment
	attach = func(c model.Comment) model.Comment {
		for _, child := range children[c.ID] {
			c.Replies = append(c.Replies, attach(child))
		}
		return c
	}
	out := []model.Comment{}
	for _, c := range all {
		if c.ParentID == nil {
			out = append(out, attach(c))
		}
	}
	return out
}

func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentCols+` FROM comments WHERE id = ?`, id), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a comment.  A parent must belong to the same post.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	if c.ParentID != nil {
		parent, err := r.GetByID(ctx, *c.ParentID)
		if err != nil {
			return err
		}
		if parent.PostID != c.PostID {
			return ErrConflict
		}
	}
	const q = `INSERT INTO comments (post_id, author_id, parent_id, content) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.PostID, c.AuthorID, c.ParentID, c.Content)
	if err != nil {
		return mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

func (r *CommentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
