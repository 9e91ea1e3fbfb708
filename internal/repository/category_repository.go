package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/trekker-booking/internal/model"
)

type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `id, name, slug, description, created_at`

func scanCategory(s scanner, c *model.Category) error {
	var desc sql.NullString
	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &desc, &c.CreatedAt); err != nil {
		return err
	}
	if desc.Valid {
		v := desc.String
		c.Description = &v
	}
	return nil
}

// List returns every category by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryCols+` FROM categories ORDER BY name`)
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

func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var c model.Category
	err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryCols+` FROM categories WHERE slug = ?`, slug), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a category.  A duplicate name or slug yields ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (name, slug, description) VALUES (?, ?, ?)`,
		c.Name, c.Slug, c.Description)
	if err != nil {
		return mapDBError(err)
	}
	got, err := r.GetBySlug(ctx, c.Slug)
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

func (r *CategoryRepo) DeleteBySlug(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	return requireRow(res)
}
