// Package service holds the booking workflows that sit between the HTTP
// handlers and the inventory ledger: request validation, pricing,
// ownership checks, event publication and cache invalidation.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/queue"
	"github.com/iliyamo/trekker-booking/internal/repository"
)

// Caller is the authenticated user a workflow acts for.
type Caller struct {
	UserID uint64
	Staff  bool
}

// owns reports whether c may act on a record belonging to userID.
func (c Caller) owns(userID uint64) bool { return c.Staff || c.UserID == userID }

// ValidationError rejects a request before the ledger is involved.
// Handlers render Message as a 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Ledger is the subset of *ledger.Ledger the workflows drive.
type Ledger[D any] interface {
	Kind() ledger.PoolKind
	Reserve(ctx context.Context, poolID uint64, quantity int, details D) (ledger.Record, ledger.Pool, error)
	Cancel(ctx context.Context, recordID uint64) (ledger.Record, ledger.Pool, error)
	Confirm(ctx context.Context, recordID uint64) (ledger.Record, error)
	Complete(ctx context.Context, recordID uint64) (ledger.Record, error)
	Resize(ctx context.Context, poolID uint64, total int) (ledger.Pool, error)
}

// Invalidator drops cached responses for the given groups.
type Invalidator interface {
	Invalidate(ctx context.Context, groups ...string) error
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, ...string) error { return nil }

// notifier publishes events and invalidates caches once a transition has
// committed.  Failures are logged only: the ledger write already stands.
type notifier struct {
	events queue.Publisher
	cache  Invalidator
	groups []string
	log    *zap.Logger
}

func newNotifier(events queue.Publisher, cache Invalidator, log *zap.Logger, groups ...string) notifier {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if cache == nil {
		cache = nopInvalidator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return notifier{events: events, cache: cache, groups: groups, log: log}
}

func (n notifier) after(ctx context.Context, ev queue.BookingEvent) {
	ctx = context.WithoutCancel(ctx)
	if err := n.cache.Invalidate(ctx, n.groups...); err != nil {
		n.log.Warn("cache invalidation failed", zap.Strings("groups", n.groups), zap.Error(err))
	}
	if err := n.events.Publish(ctx, ev); err != nil {
		n.log.Error("publish booking event failed",
			zap.String("type", ev.Type),
			zap.String("pool", ev.PoolKey()),
			zap.Uint64("record_id", ev.RecordID),
			zap.Error(err))
	}
}

func (n notifier) invalidate(ctx context.Context) {
	if err := n.cache.Invalidate(context.WithoutCancel(ctx), n.groups...); err != nil {
		n.log.Warn("cache invalidation failed", zap.Strings("groups", n.groups), zap.Error(err))
	}
}

// eventFor maps a target status to the event emitted on reaching it.
func eventFor(s ledger.Status) string {
	switch s {
	case ledger.StatusCancelled:
		return queue.EventReservationCancelled
	case ledger.StatusConfirmed:
		return queue.EventReservationConfirmed
	case ledger.StatusCompleted:
		return queue.EventReservationCompleted
	}
	return queue.EventReservationCreated
}

// notFoundAs turns a missing row into a field validation error, used when
// a request body references a pool that does not exist.
func notFoundAs(err error, field, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return invalid(field, "%s", msg)
	}
	return err
}
