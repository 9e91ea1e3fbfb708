package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/trekker-booking/internal/model"
)

// PostRepo stores blog posts, their category links and likes.
type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

const postCols = `p.id, p.author_id, p.title, p.slug, p.body, p.excerpt, p.media_url, p.views_count,
	p.is_published, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id),
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)`

func scanPost(s scanner, p *model.Post) error {
	var excerpt, media sql.NullString
	err := s.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Body, &excerpt, &media, &p.ViewsCount,
		&p.IsPublished, &p.CreatedAt, &p.UpdatedAt, &p.LikesCount, &p.CommentsCount)
	if err != nil {
		return err
	}
	if excerpt.Valid {
		v := excerpt.String
		p.Excerpt = &v
	}
	if media.Valid {
		v := media.String
		p.MediaURL = &v
	}
	return nil
}

// ListPublished returns published posts newest first, optionally limited
// to one category slug.
func (r *PostRepo) ListPublished(ctx context.Context, categorySlug string) ([]model.Post, error) {
	q := `SELECT ` + postCols + ` FROM posts p WHERE p.is_published = 1`
	args := []any{}
	if categorySlug != "" {
		q += ` AND EXISTS (SELECT 1 FROM post_categories pc JOIN categories c ON c.id = pc.category_id
			WHERE pc.post_id = p.id AND c.slug = ?)`
		args = append(args, categorySlug)
	}
	q += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Categories, err = r.categories(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetBySlug returns a post with its categories, or ErrNotFound.
func (r *PostRepo) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	var p model.Post
	err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postCols+` FROM posts p WHERE p.slug = ?`, slug), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Categories, err = r.categories(ctx, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) categories(ctx context.Context, postID uint64) ([]model.Category, error) {
	const q = `SELECT c.id, c.name, c.slug, c.description, c.created_at
		FROM categories c JOIN post_categories pc ON pc.category_id = c.id
		WHERE pc.post_id = ? ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SlugTaken reports whether a post already uses slug.
func (r *PostRepo) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE slug = ?`, slug).Scan(&n)
	return n > 0, err
}

// Create inserts the post and its category links in one transaction.
func (r *PostRepo) Create(ctx context.Context, p *model.Post, categoryIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO posts (author_id, title, slug, body, excerpt, media_url, is_published) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.AuthorID, p.Title, p.Slug, p.Body, p.Excerpt, p.MediaURL, p.IsPublished)
	if err != nil {
		return mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := linkCategories(ctx, tx, uint64(id), categoryIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	got, err := r.GetBySlug(ctx, p.Slug)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// Update rewrites the editable fields and, when categoryIDs is non-nil,
// replaces the category links.
func (r *PostRepo) Update(ctx context.Context, p *model.Post, categoryIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE posts SET title = ?, body = ?, excerpt = ?, media_url = ?, is_published = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, p.Title, p.Body, p.Excerpt, p.MediaURL, p.IsPublished, p.ID); err != nil {
		return mapDBError(err)
	}
	if categoryIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = ?`, p.ID); err != nil {
			return err
		}
		if err := linkCategories(ctx, tx, p.ID, categoryIDs); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	got, err := r.GetBySlug(ctx, p.Slug)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

func linkCategories(ctx context.Context, tx *sql.Tx, postID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT IGNORE INTO post_categories (post_id, category_id) VALUES `)
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?)")
		args = append(args, postID, id)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return mapDBError(err)
}

func (r *PostRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// IncrementViews bumps views_count by one.
func (r *PostRepo) IncrementViews(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET views_count = views_count + 1 WHERE id = ?`, id)
	return err
}

// ToggleLike adds the user's like, or removes it if present.  It returns
// whether the post is now liked and the new like count.
func (r *PostRepo) ToggleLike(ctx context.Context, postID, userID uint64) (bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return false, 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	liked := removed == 0
	if liked {
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_likes (post_id, user_id) VALUES (?, ?)`, postID, userID); err != nil {
			return false, 0, mapDBError(err)
		}
	}
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = ?`, postID).Scan(&count); err != nil {
		return false, 0, err
	}
	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	committed = true
	return liked, count, nil
}
