package model

import "time"

// Tour is a scheduled package trip.  MaxParticipants and AvailableSpots
// form the tour pool.
type Tour struct {
	ID                  uint64    `json:"id"`                     // tours.id
	Name                string    `json:"name"`                   // tours.name
	Description         string    `json:"description"`            // tours.description
	Destination         string    `json:"destination"`            // tours.destination
	DurationDays        int       `json:"duration_days"`          // tours.duration_days
	PricePerPersonCents int64     `json:"price_per_person_cents"` // tours.price_per_person_cents
	MaxParticipants     int       `json:"max_participants"`       // tours.max_participants
	AvailableSpots      int       `json:"available_spots"`        // tours.available_spots
	StartDate           Date      `json:"start_date"`             // tours.start_date
	EndDate             Date      `json:"end_date"`               // tours.end_date
	Itinerary           string    `json:"itinerary"`              // tours.itinerary
	IncludedServices    string    `json:"included_services"`      // tours.included_services
	IsActive            bool      `json:"is_active"`              // tours.is_active
	CreatedAt           time.Time `json:"created_at"`             // tours.created_at
	UpdatedAt           time.Time `json:"updated_at"`             // tours.updated_at
}

// IncludedServicesList splits IncludedServices on commas.
func (t Tour) IncludedServicesList() []string { return splitList(t.IncludedServices) }
