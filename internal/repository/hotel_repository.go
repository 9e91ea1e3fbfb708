package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/trekker-booking/internal/model"
)

// HotelRepo provides CRUD operations for hotels.  Only active hotels are
// visible through List and GetByID.
type HotelRepo struct {
	db *sql.DB
}

// NewHotelRepo returns a new HotelRepo bound to the given database.
func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{db: db} }

// HotelFilter narrows List.  Empty fields are ignored.  City, Country and Q
// are case-insensitive substring matches.
type HotelFilter struct {
	City       string
	Country    string
	StarRating int
	Q          string
}

// HotelSummary is a list row.  MinPriceCents is the cheapest nightly rate
// among rooms that still have availability, nil if none do.
type HotelSummary struct {
	model.Hotel
	AmenitiesList []string `json:"amenities_list"`
	MinPriceCents *int64   `json:"min_price_cents"`
}

const hotelCols = `h.id, h.name, h.description, h.address, h.city, h.country, h.star_rating,
	h.amenities, h.phone, h.email, h.is_active, h.created_at, h.updated_at`

func scanHotel(s scanner, h *model.Hotel, extra ...any) error {
	dest := []any{&h.ID, &h.Name, &h.Description, &h.Address, &h.City, &h.Country, &h.StarRating,
		&h.Amenities, &h.Phone, &h.Email, &h.IsActive, &h.CreatedAt, &h.UpdatedAt}
	return s.Scan(append(dest, extra...)...)
}

// List returns active hotels newest first.
func (r *HotelRepo) List(ctx context.Context, f HotelFilter) ([]HotelSummary, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + hotelCols + `,
	(SELECT MIN(r.price_per_night_cents) FROM rooms r WHERE r.hotel_id = h.id AND r.available_rooms > 0)
	FROM hotels h WHERE h.is_active = 1`)
	args := []any{}
	if f.City != "" {
		sb.WriteString(` AND h.city LIKE ?`)
		args = append(args, like(f.City))
	}
	if f.Country != "" {
		sb.WriteString(` AND h.country LIKE ?`)
		args = append(args, like(f.Country))
	}
	if f.StarRating > 0 {
		sb.WriteString(` AND h.star_rating = ?`)
		args = append(args, f.StarRating)
	}
	if f.Q != "" {
		sb.WriteString(` AND (h.name LIKE ? OR h.city LIKE ? OR h.country LIKE ? OR h.description LIKE ?)`)
		q := like(f.Q)
		args = append(args, q, q, q, q)
	}
	sb.WriteString(` ORDER BY h.created_at DESC, h.id DESC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HotelSummary{}
	for rows.Next() {
		var hs HotelSummary
		var minPrice sql.NullInt64
		if err := scanHotel(rows, &hs.Hotel, &minPrice); err != nil {
			return nil, err
		}
		hs.AmenitiesList = hs.Hotel.AmenitiesList()
		if minPrice.Valid {
			v := minPrice.Int64
			hs.MinPriceCents = &v
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}

// GetByID returns an active hotel or ErrNotFound.
func (r *HotelRepo) GetByID(ctx context.Context, id uint64) (*model.Hotel, error) {
	q := `SELECT ` + hotelCols + ` FROM hotels h WHERE h.id = ? AND h.is_active = 1`
	var h model.Hotel
	if err := scanHotel(r.db.QueryRowContext(ctx, q, id), &h); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// Create inserts a hotel and reloads it to pick up defaults.
func (r *HotelRepo) Create(ctx context.Context, h *model.Hotel) error {
	const q = `INSERT INTO hotels (name, description, address, city, country, star_rating, amenities, phone, email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, h.Name, h.Description, h.Address, h.City, h.Country,
		h.StarRating, h.Amenities, h.Phone, h.Email)
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
	*h = *got
	return nil
}

// Update overwrites the descriptive fields of an active hotel.
func (r *HotelRepo) Update(ctx context.Context, h *model.Hotel) error {
	const q = `UPDATE hotels SET name = ?, description = ?, address = ?, city = ?, country = ?,
		star_rating = ?, amenities = ?, phone = ?, email = ? WHERE id = ? AND is_active = 1`
	_, err := r.db.ExecContext(ctx, q, h.Name, h.Description, h.Address, h.City, h.Country,
		h.StarRating, h.Amenities, h.Phone, h.Email, h.ID)
	if err != nil {
		return mapDBError(err)
	}
	// zero affected rows also means "no change" in MySQL, so reload instead
	got, err := r.GetByID(ctx, h.ID)
	if err != nil {
		return err
	}
	*h = *got
	return nil
}

// Deactivate hides the hotel from the catalogue.  Its rows are kept so
// existing reservations still resolve.
func (r *HotelRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE hotels SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func like(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
