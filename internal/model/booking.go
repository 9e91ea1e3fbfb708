package model

import (
	"time"

	"github.com/iliyamo/trekker-booking/internal/ledger"
)

// HotelReservation is a guest's claim on NumRooms rooms of one room type.
// Reference is the opaque booking code shown to the guest.
type HotelReservation struct {
	ID              uint64        `json:"id"`                // hotel_reservations.id
	Reference       string        `json:"reference"`         // hotel_reservations.reference
	UserID          uint64        `json:"user_id"`           // hotel_reservations.user_id
	RoomID          uint64        `json:"room_id"`           // hotel_reservations.room_id
	CheckIn         Date          `json:"check_in"`          // hotel_reservations.check_in
	CheckOut        Date          `json:"check_out"`         // hotel_reservations.check_out
	NumGuests       int           `json:"num_guests"`        // hotel_reservations.num_guests
	NumRooms        int           `json:"num_rooms"`         // hotel_reservations.num_rooms
	TotalPriceCents int64         `json:"total_price_cents"` // hotel_reservations.total_price_cents
	Status          ledger.Status `json:"status"`            // hotel_reservations.status
	SpecialRequests *string       `json:"special_requests"`  // hotel_reservations.special_requests (nullable)
	CreatedAt       time.Time     `json:"created_at"`        // hotel_reservations.created_at
	UpdatedAt       time.Time     `json:"updated_at"`        // hotel_reservations.updated_at
}

// Nights is the length of stay.
func (r HotelReservation) Nights() int { return r.CheckIn.DaysUntil(r.CheckOut) }

// TourBooking is a traveller's claim on NumParticipants spots of a tour.
type TourBooking struct {
	ID              uint64        `json:"id"`                // tour_bookings.id
	Reference       string        `json:"reference"`         // tour_bookings.reference
	UserID          uint64        `json:"user_id"`           // tour_bookings.user_id
	TourID          uint64        `json:"tour_id"`           // tour_bookings.tour_id
	NumParticipants int           `json:"num_participants"`  // tour_bookings.num_participants
	TotalPriceCents int64         `json:"total_price_cents"` // tour_bookings.total_price_cents
	Status          ledger.Status `json:"status"`            // tour_bookings.status
	SpecialRequests *string       `json:"special_requests"`  // tour_bookings.special_requests (nullable)
	CreatedAt       time.Time     `json:"booking_date"`      // tour_bookings.created_at
	UpdatedAt       time.Time     `json:"updated_at"`        // tour_bookings.updated_at
}
