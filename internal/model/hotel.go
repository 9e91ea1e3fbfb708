package model

import (
	"strings"
	"time"
)

// Room types offered by hotels.
const (
	RoomSingle = "SINGLE"
	RoomDouble = "DOUBLE"
	RoomSuite  = "SUITE"
	RoomDeluxe = "DELUXE"
)

// ValidRoomType reports whether t is one of the known room types.
func ValidRoomType(t string) bool {
	switch t {
	case RoomSingle, RoomDouble, RoomSuite, RoomDeluxe:
		return true
	}
	return false
}

// Hotel is a property listed in the catalogue.  Amenities are stored as a
// comma separated string and exposed split by AmenitiesList.  Deleting a
// hotel only clears IsActive.
type Hotel struct {
	ID          uint64    `json:"id"`          // hotels.id
	Name        string    `json:"name"`        // hotels.name
	Description string    `json:"description"` // hotels.description
	Address     string    `json:"address"`     // hotels.address
	City        string    `json:"city"`        // hotels.city
	Country     string    `json:"country"`     // hotels.country
	StarRating  int       `json:"star_rating"` // hotels.star_rating (1..5)
	Amenities   string    `json:"amenities"`   // hotels.amenities
	Phone       string    `json:"phone"`       // hotels.phone
	Email       string    `json:"email"`       // hotels.email
	IsActive    bool      `json:"is_active"`   // hotels.is_active
	CreatedAt   time.Time `json:"created_at"`  // hotels.created_at
	UpdatedAt   time.Time `json:"updated_at"`  // hotels.updated_at
}

// AmenitiesList splits Amenities on commas, dropping blanks.
func (h Hotel) AmenitiesList() []string { return splitList(h.Amenities) }

// Room is one room type within a hotel.  TotalRooms and AvailableRooms
// form the room pool; AvailableRooms is only changed by the ledger.
type Room struct {
	ID                 uint64    `json:"id"`                    // rooms.id
	HotelID            uint64    `json:"hotel_id"`              // rooms.hotel_id
	RoomType           string    `json:"room_type"`             // rooms.room_type
	Description        string    `json:"description"`           // rooms.description
	PricePerNightCents int64     `json:"price_per_night_cents"` // rooms.price_per_night_cents
	Capacity           int       `json:"capacity"`              // rooms.capacity (guests per room)
	TotalRooms         int       `json:"total_rooms"`           // rooms.total_rooms
	AvailableRooms     int       `json:"available_rooms"`       // rooms.available_rooms
	CreatedAt          time.Time `json:"created_at"`            // rooms.created_at
	UpdatedAt          time.Time `json:"updated_at"`            // rooms.updated_at
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
