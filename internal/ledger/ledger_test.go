package ledger

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LedgerSuite struct {
	suite.Suite
	ctx   context.Context
	store *memStore
	l     *Ledger[string]
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newMemStore(KindRoom)
	s.l = New[string](s.store, NewLocalLocker(time.Second), nil)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) TestReserve_DecrementsPool() {
	s.store.addPool(1, 5, 5)

	rec, pool, err := s.l.Reserve(s.ctx, 1, 3, "guest")
	s.Require().NoError(err)
	s.Equal(StatusPending, rec.Status)
	s.Equal(3, rec.Quantity)
	s.Equal(PoolKey{Kind: KindRoom, ID: 1}, rec.Pool)
	s.NotZero(rec.ID)
	s.Equal(2, pool.Remaining)

	s.Equal(2, s.store.pool(1).Remaining)
	s.Equal(rec, s.store.record(rec.ID))
	s.Equal("guest", s.store.notes[rec.ID])
}

func (s *LedgerSuite) TestReserve_InsufficientCapacity() {
	s.store.addPool(1, 5, 2)

	_, _, err := s.l.Reserve(s.ctx, 1, 3, "")
	var ic *InsufficientCapacityError
	s.Require().ErrorAs(err, &ic)
	s.Equal(2, ic.Available)
	s.Equal(2, s.store.pool(1).Remaining)
	s.Zero(s.store.commits)
}

func (s *LedgerSuite) TestReserve_ThenCancelRestores() {
	s.store.addPool(1, 5, 2)

	rec, _, err := s.l.Reserve(s.ctx, 1, 2, "")
	s.Require().NoError(err)
	s.Equal(2, rec.Quantity)
	s.Equal(0, s.store.pool(1).Remaining)

	cancelled, pool, err := s.l.Cancel(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, cancelled.Status)
	s.Equal(2, pool.Remaining)
	s.Equal(2, s.store.pool(1).Remaining)
	s.Equal(StatusCancelled, s.store.record(rec.ID).Status)
}

func (s *LedgerSuite) TestReserve_InvalidQuantity() {
	s.store.addPool(1, 5, 5)

	_, _, err := s.l.Reserve(s.ctx, 1, 0, "")
	s.ErrorIs(err, ErrInvalidQuantity)
	_, _, err = s.l.Reserve(s.ctx, 1, -2, "")
	s.ErrorIs(err, ErrInvalidQuantity)
	s.Equal(5, s.store.pool(1).Remaining)
}

func (s *LedgerSuite) TestReserve_UnknownPool() {
	_, _, err := s.l.Reserve(s.ctx, 42, 1, "")
	s.ErrorIs(err, ErrPoolNotFound)
}

func (s *LedgerSuite) TestCancel_ConfirmedCreditsQuantity() {
	s.store.addPool(1, 4, 4)
	rec, _, err := s.l.Reserve(s.ctx, 1, 3, "")
	s.Require().NoError(err)
	_, err = s.l.Confirm(s.ctx, rec.ID)
	s.Require().NoError(err)

	got, pool, err := s.l.Cancel(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, got.Status)
	s.Equal(4, pool.Remaining)
}

func (s *LedgerSuite) TestCancel_Twice() {
	s.store.addPool(1, 5, 5)
	rec, _, err := s.l.Reserve(s.ctx, 1, 2, "")
	s.Require().NoError(err)
	_, _, err = s.l.Cancel(s.ctx, rec.ID)
	s.Require().NoError(err)

	_, _, err = s.l.Cancel(s.ctx, rec.ID)
	var it *InvalidTransitionError
	s.Require().ErrorAs(err, &it)
	s.Equal(StatusCancelled, it.Current)
	s.Equal(5, s.store.pool(1).Remaining)
}

func (s *LedgerSuite) TestCancel_Completed() {
	s.store.addPool(1, 5, 5)
	rec, _, err := s.l.Reserve(s.ctx, 1, 2, "")
	s.Require().NoError(err)
	_, err = s.l.Confirm(s.ctx, rec.ID)
	s.Require().NoError(err)
	done, err := s.l.Complete(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(StatusCompleted, done.Status)
	s.Equal(3, s.store.pool(1).Remaining)

	_, _, err = s.l.Cancel(s.ctx, rec.ID)
	var it *InvalidTransitionError
	s.Require().ErrorAs(err, &it)
	s.Equal(StatusCompleted, it.Current)
	s.Equal(3, s.store.pool(1).Remaining)
	s.Equal(StatusCompleted, s.store.record(rec.ID).Status)
}

func (s *LedgerSuite) TestCancel_UsesPersistedQuantity() {
	s.store.addPool(1, 10, 10)
	rec, _, err := s.l.Reserve(s.ctx, 1, 4, "")
	s.Require().NoError(err)

	_, pool, err := s.l.Cancel(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(10, pool.Remaining)
}

func (s *LedgerSuite) TestCancel_UnknownRecord() {
	_, _, err := s.l.Cancel(s.ctx, 99)
	s.ErrorIs(err, ErrRecordNotFound)
}

func (s *LedgerSuite) TestComplete_FromPending() {
	s.store.addPool(1, 5, 5)
	rec, _, err := s.l.Reserve(s.ctx, 1, 1, "")
	s.Require().NoError(err)

	_, err = s.l.Complete(s.ctx, rec.ID)
	var it *InvalidTransitionError
	s.Require().ErrorAs(err, &it)
	s.Equal(StatusPending, it.Current)
	s.Equal(StatusCompleted, it.Target)
}

func (s *LedgerSuite) TestConfirm_Twice() {
	s.store.addPool(1, 5, 5)
	rec, _, err := s.l.Reserve(s.ctx, 1, 1, "")
	s.Require().NoError(err)
	_, err = s.l.Confirm(s.ctx, rec.ID)
	s.Require().NoError(err)

	_, err = s.l.Confirm(s.ctx, rec.ID)
	var it *InvalidTransitionError
	s.ErrorAs(err, &it)
}

func (s *LedgerSuite) TestCommitFailure_LeavesStoreUntouched() {
	s.store.addPool(1, 5, 5)
	s.store.failCommit = errors.New("disk on fire")

	_, _, err := s.l.Reserve(s.ctx, 1, 2, "")
	s.Require().Error(err)
	s.False(IsRejection(err))
	s.Equal(5, s.store.pool(1).Remaining)
	s.Empty(s.store.records)
}

func (s *LedgerSuite) TestResize() {
	s.store.addPool(1, 5, 5)
	_, _, err := s.l.Reserve(s.ctx, 1, 3, "")
	s.Require().NoError(err)

	_, err = s.l.Resize(s.ctx, 1, 2)
	s.ErrorIs(err, ErrCapacityInUse)
	s.Equal(Pool{Key: PoolKey{Kind: KindRoom, ID: 1}, Total: 5, Remaining: 2}, s.store.pool(1))

	p, err := s.l.Resize(s.ctx, 1, 8)
	s.Require().NoError(err)
	s.Equal(8, p.Total)
	s.Equal(5, p.Remaining)
}

func (s *LedgerSuite) TestContention() {
	s.store.addPool(1, 5, 5)
	l := New[string](s.store, busyLocker{}, nil)

	_, _, err := l.Reserve(s.ctx, 1, 1, "")
	s.ErrorIs(err, ErrContention)
	s.True(IsRejection(err))
	s.Equal(5, s.store.pool(1).Remaining)
}

func TestLedger_ConcurrentReserveNeverOversells(t *testing.T) {
	store := newMemStore(KindTour)
	store.addPool(7, 10, 10)
	l := New[string](store, NewLocalLocker(5*time.Second), nil)

	var ok, full atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.Reserve(context.Background(), 7, 1, "")
			var ic *InsufficientCapacityError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &ic):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(40), full.Load())
	assert.Equal(t, 0, store.pool(7).Remaining)
}

func TestLedger_ConcurrentCancelCreditsOnce(t *testing.T) {
	store := newMemStore(KindRoom)
	store.addPool(1, 3, 3)
	l := New[string](store, NewLocalLocker(5*time.Second), nil)
	rec, _, err := l.Reserve(context.Background(), 1, 2, "")
	require.NoError(t, err)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := l.Cancel(context.Background(), rec.ID); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 3, store.pool(1).Remaining)
}

func TestLedger_RandomSequenceKeepsBounds(t *testing.T) {
	store := newMemStore(KindRoom)
	store.addPool(1, 6, 6)
	l := New[string](store, NewLocalLocker(time.Second), nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	var live []uint64
	for i := 0; i < 500; i++ {
		before := store.pool(1).Remaining
		if len(live) == 0 || rng.Intn(2) == 0 {
			q := rng.Intn(4) + 1
			rec, _, err := l.Reserve(ctx, 1, q, "")
			if err != nil {
				var ic *InsufficientCapacityError
				require.ErrorAs(t, err, &ic)
				assert.Equal(t, before, ic.Available)
				assert.Equal(t, before, store.pool(1).Remaining)
			} else {
				assert.Equal(t, before-q, store.pool(1).Remaining)
				live = append(live, rec.ID)
			}
		} else {
			idx := rng.Intn(len(live))
			id := live[idx]
			live = append(live[:idx], live[idx+1:]...)
			q := store.record(id).Quantity
			_, _, err := l.Cancel(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, before+q, store.pool(1).Remaining)
		}
		p := store.pool(1)
		require.GreaterOrEqual(t, p.Remaining, 0)
		require.LessOrEqual(t, p.Remaining, p.Total)
	}
}
