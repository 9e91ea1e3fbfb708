// Package ledger guards room and tour capacity.  Every mutation of a pool's
// remaining count happens here, under a per-pool lock and inside a single
// storage transaction together with the status change of the record that
// caused it.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store is the persistence port for one pool kind.  D is the domain row
// written alongside a new record (a hotel reservation or tour booking).
type Store[D any] interface {
	Kind() PoolKind
	// PeekRecord reads a record without locking it.  The ledger uses it only
	// to find which pool lock to take.
	PeekRecord(ctx context.Context, id uint64) (Record, error)
	Begin(ctx context.Context) (Tx[D], error)
}

// Tx is one storage transaction.  LockPool and LockRecord must hold the
// row until Commit or Rollback.
type Tx[D any] interface {
	LockPool(ctx context.Context, id uint64) (Pool, error)
	SavePool(ctx context.Context, p Pool) error
	LockRecord(ctx context.Context, id uint64) (Record, error)
	// InsertRecord persists rec with details and sets rec.ID.
	InsertRecord(ctx context.Context, rec *Record, details D) error
	SaveStatus(ctx context.Context, rec Record) error
	Commit() error
	Rollback() error
}

// Ledger applies Reserve/Cancel/Confirm/Complete/Resize to one Store.
type Ledger[D any] struct {
	store  Store[D]
	locks  Locker
	log    *zap.Logger
	tracer trace.Tracer
}

// New builds a Ledger.  A nil logger is replaced with a no-op one.
func New[D any](store Store[D], locks Locker, log *zap.Logger) *Ledger[D] {
	if store == nil || locks == nil {
		panic("ledger.New: nil dependency")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger[D]{
		store:  store,
		locks:  locks,
		log:    log.With(zap.String("pool_kind", string(store.Kind()))),
		tracer: otel.Tracer("github.com/iliyamo/trekker-booking/internal/ledger"),
	}
}

// Kind reports the pool kind this ledger manages.
func (l *Ledger[D]) Kind() PoolKind { return l.store.Kind() }

// Reserve takes quantity units from the pool and creates a PENDING record
// bound to it.  It returns the record and the pool as committed.  When the
// pool cannot satisfy the request it returns an *InsufficientCapacityError
// and nothing is written.
func (l *Ledger[D]) Reserve(ctx context.Context, poolID uint64, quantity int, details D) (Record, Pool, error) {
	key := PoolKey{Kind: l.store.Kind(), ID: poolID}
	ctx, span := l.tracer.Start(ctx, "ledger.reserve", trace.WithAttributes(
		attribute.String("ledger.pool", key.String()),
		attribute.Int("ledger.quantity", quantity),
	))
	defer span.End()

	if quantity < 1 {
		l.finish(span, "reserve", key, Record{}, 0, ErrInvalidQuantity)
		return Record{}, Pool{}, ErrInvalidQuantity
	}

	var rec Record
	var pool Pool
	err := l.withPool(ctx, key, func(tx Tx[D]) error {
		var err error
		if pool, err = tx.LockPool(ctx, poolID); err != nil {
			return err
		}
		if err := pool.Take(quantity); err != nil {
			return err
		}
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		rec = Record{Pool: key, Quantity: quantity, Status: StatusPending}
		return tx.InsertRecord(ctx, &rec, details)
	})
	l.finish(span, "reserve", key, rec, pool.Remaining, err)
	if err != nil {
		return Record{}, Pool{}, err
	}
	return rec, pool, nil
}

// Cancel moves the record to CANCELLED and credits its pool with the
// quantity stored on the record.  A record already CANCELLED or COMPLETED
// yields *InvalidTransitionError and nothing is written.
func (l *Ledger[D]) Cancel(ctx context.Context, recordID uint64) (Record, Pool, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.cancel", trace.WithAttributes(
		attribute.Int64("ledger.record_id", int64(recordID)),
	))
	defer span.End()

	peek, err := l.store.PeekRecord(ctx, recordID)
	if err != nil {
		l.finish(span, "cancel", PoolKey{Kind: l.store.Kind()}, Record{ID: recordID}, 0, err)
		return Record{}, Pool{}, err
	}
	key := peek.Pool
	span.SetAttributes(attribute.String("ledger.pool", key.String()))

	var rec Record
	var pool Pool
	err = l.withPool(ctx, key, func(tx Tx[D]) error {
		var err error
		if pool, err = tx.LockPool(ctx, key.ID); err != nil {
			return err
		}
		if rec, err = tx.LockRecord(ctx, recordID); err != nil {
			return err
		}
		if rec.Pool != key {
			return fmt.Errorf("ledger: record %d moved from %s to %s", recordID, key, rec.Pool)
		}
		if err := rec.Transition(StatusCancelled); err != nil {
			return err
		}
		if err := pool.Give(rec.Quantity); err != nil {
			return err
		}
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		return tx.SaveStatus(ctx, rec)
	})
	l.finish(span, "cancel", key, rec, pool.Remaining, err)
	if err != nil {
		return Record{}, Pool{}, err
	}
	return rec, pool, nil
}

// Confirm moves a PENDING record to CONFIRMED.  The pool is untouched.
func (l *Ledger[D]) Confirm(ctx context.Context, recordID uint64) (Record, error) {
	return l.transition(ctx, "confirm", recordID, StatusConfirmed)
}

// Complete moves a CONFIRMED record to COMPLETED.  Completed records keep
// their capacity; only cancellation returns units to the pool.
func (l *Ledger[D]) Complete(ctx context.Context, recordID uint64) (Record, error) {
	return l.transition(ctx, "complete", recordID, StatusCompleted)
}

func (l *Ledger[D]) transition(ctx context.Context, op string, recordID uint64, next Status) (Record, error) {
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.Int64("ledger.record_id", int64(recordID)),
		attribute.String("ledger.target_status", string(next)),
	))
	defer span.End()

	peek, err := l.store.PeekRecord(ctx, recordID)
	if err != nil {
		l.finish(span, op, PoolKey{Kind: l.store.Kind()}, Record{ID: recordID}, 0, err)
		return Record{}, err
	}
	key := peek.Pool
	span.SetAttributes(attribute.String("ledger.pool", key.String()))

	var rec Record
	var remaining int
	err = l.withPool(ctx, key, func(tx Tx[D]) error {
		pool, err := tx.LockPool(ctx, key.ID)
		if err != nil {
			return err
		}
		if rec, err = tx.LockRecord(ctx, recordID); err != nil {
			return err
		}
		if err := rec.Transition(next); err != nil {
			return err
		}
		remaining = pool.Remaining
		return tx.SaveStatus(ctx, rec)
	})
	l.finish(span, op, key, rec, remaining, err)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Resize sets a new total for the pool, keeping what active records hold.
func (l *Ledger[D]) Resize(ctx context.Context, poolID uint64, total int) (Pool, error) {
	key := PoolKey{Kind: l.store.Kind(), ID: poolID}
	ctx, span := l.tracer.Start(ctx, "ledger.resize", trace.WithAttributes(
		attribute.String("ledger.pool", key.String()),
		attribute.Int("ledger.total", total),
	))
	defer span.End()

	var pool Pool
	err := l.withPool(ctx, key, func(tx Tx[D]) error {
		var err error
		if pool, err = tx.LockPool(ctx, poolID); err != nil {
			return err
		}
		if err := pool.Resize(total); err != nil {
			return err
		}
		return tx.SavePool(ctx, pool)
	})
	l.finish(span, "resize", key, Record{}, pool.Remaining, err)
	if err != nil {
		return Pool{}, err
	}
	return pool, nil
}

// withPool runs fn under the pool lock inside one transaction.  fn's
// writes are committed only if it returns nil.
func (l *Ledger[D]) withPool(ctx context.Context, key PoolKey, fn func(Tx[D]) error) error {
	unlock, err := l.locks.Lock(ctx, key.String())
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	committed = true
	return nil
}

func (l *Ledger[D]) finish(span trace.Span, op string, key PoolKey, rec Record, remaining int, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Uint64("pool_id", key.ID),
		zap.Uint64("record_id", rec.ID),
		zap.Int("quantity", rec.Quantity),
	}
	switch {
	case err == nil:
		span.SetAttributes(
			attribute.Int64("ledger.record_id", int64(rec.ID)),
			attribute.Int("ledger.remaining", remaining),
		)
		l.log.Info("ledger transition committed",
			append(fields, zap.String("status", string(rec.Status)), zap.Int("remaining", remaining))...)
	case IsRejection(err):
		span.SetAttributes(attribute.String("ledger.rejection", err.Error()))
		l.log.Debug("ledger request rejected", append(fields, zap.Error(err))...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		span.SetStatus(codes.Error, err.Error())
		l.log.Warn("ledger request abandoned", append(fields, zap.Error(err))...)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.log.Error("ledger transition failed", append(fields, zap.Error(err))...)
	}
}
