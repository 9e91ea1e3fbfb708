package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/trekker-booking/internal/model"
)

// TourRepo provides catalogue access to tours.  available_spots is only
// written on insert; afterwards the ledger owns it.
type TourRepo struct {
	db *sql.DB
}

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

// TourFilter narrows List.  With Available set, only tours that still have
// spots and start on or after Today are returned.
type TourFilter struct {
	Destination string
	Available   bool
	Today       model.Date
	StartFrom   *model.Date
	EndBy       *model.Date
	Q           string
}

const tourCols = `id, name, description, destination, duration_days, price_per_person_cents,
	max_participants, available_spots, start_date, end_date, itinerary, included_services,
	is_active, created_at, updated_at`

func scanTour(s scanner, t *model.Tour) error {
	return s.Scan(&t.ID, &t.Name, &t.Description, &t.Destination, &t.DurationDays, &t.PricePerPersonCents,
		&t.MaxParticipants, &t.AvailableSpots, &t.StartDate, &t.EndDate, &t.Itinerary, &t.IncludedServices,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
}

// List returns active tours ordered by start date.
func (r *TourRepo) List(ctx context.Context, f TourFilter) ([]model.Tour, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + tourCols + ` FROM tours WHERE is_active = 1`)
	args := []any{}
	if f.Destination != "" {
		sb.WriteString(` AND destination LIKE ?`)
		args = append(args, like(f.Destination))
	}
	if f.Available {
		sb.WriteString(` AND available_spots > 0 AND start_date >= ?`)
		args = append(args, f.Today)
	}
	if f.StartFrom != nil {
		sb.WriteString(` AND start_date >= ?`)
		args = append(args, *f.StartFrom)
	}
	if f.EndBy != nil {
		sb.WriteString(` AND end_date <= ?`)
		args = append(args, *f.EndBy)
	}
	if f.Q != "" {
		sb.WriteString(` AND (name LIKE ? OR destination LIKE ? OR description LIKE ?)`)
		q := like(f.Q)
		args = append(args, q, q, q)
	}
	sb.WriteString(` ORDER BY start_date, id`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Tour{}
	for rows.Next() {
		var t model.Tour
		if err := scanTour(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID returns the tour, active or not, or ErrNotFound.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (*model.Tour, error) {
	var t model.Tour
	err := scanTour(r.db.QueryRowContext(ctx, `SELECT `+tourCols+` FROM tours WHERE id = ?`, id), &t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a tour with every spot available.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour) error {
	const q = `INSERT INTO tours (name, description, destination, duration_days, price_per_person_cents,
		max_participants, available_spots, start_date, end_date, itinerary, included_services)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Description, t.Destination, t.DurationDays, t.PricePerPersonCents,
		t.MaxParticipants, t.MaxParticipants, t.StartDate, t.EndDate, t.Itinerary, t.IncludedServices)
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
	*t = *got
	return nil
}

// UpdateDetails changes everything except the participant counts.
func (r *TourRepo) UpdateDetails(ctx context.Context, t *model.Tour) error {
	const q = `UPDATE tours SET name = ?, description = ?, destination = ?, duration_days = ?,
		price_per_person_cents = ?, start_date = ?, end_date = ?, itinerary = ?, included_services = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, t.Name, t.Description, t.Destination, t.DurationDays,
		t.PricePerPersonCents, t.StartDate, t.EndDate, t.Itinerary, t.IncludedServices, t.ID)
	if err != nil {
		return mapDBError(err)
	}
	got, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// Deactivate withdraws the tour from sale.
func (r *TourRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tours SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
