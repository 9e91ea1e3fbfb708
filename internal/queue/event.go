// Package queue carries booking lifecycle events over the message broker
// and runs the consumer that writes them to the booking log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/trekker-booking/internal/ledger"
)

// Event types, one per committed ledger transition.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCompleted = "reservation.completed"
)

// BookingEvent is published after a ledger transition commits.  It holds
// enough for downstream consumers to log or notify without reading the
// primary database.  Remaining is the pool count right after the change,
// zero for transitions that do not touch the pool.
type BookingEvent struct {
	EventID         string          `json:"event_id"`
	Type            string          `json:"type"`
	Kind            ledger.PoolKind `json:"kind"`
	RecordID        uint64          `json:"record_id"`
	PoolID          uint64          `json:"pool_id"`
	UserID          uint64          `json:"user_id"`
	Quantity        int             `json:"quantity"`
	Remaining       int             `json:"remaining"`
	Status          ledger.Status   `json:"status"`
	TotalPriceCents int64           `json:"total_price_cents"`
	Reference       string          `json:"reference"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// NewBookingEvent stamps a fresh event ID and the current UTC time.
func NewBookingEvent(eventType string, rec ledger.Record) BookingEvent {
	return BookingEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		Kind:       rec.Pool.Kind,
		RecordID:   rec.ID,
		PoolID:     rec.Pool.ID,
		Quantity:   rec.Quantity,
		Status:     rec.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// PoolKey is the partition key used by brokers that shard by key.
func (e BookingEvent) PoolKey() string {
	return ledger.PoolKey{Kind: e.Kind, ID: e.PoolID}.String()
}
