package service

import (
	"context"
	"sync"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/model"
	"github.com/iliyamo/trekker-booking/internal/queue"
	"github.com/iliyamo/trekker-booking/internal/repository"
)

// fakeLedger keeps pools and records in memory and applies the same
// checks as ledger.Pool and ledger.Record.
type fakeLedger[D any] struct {
	mu      sync.Mutex
	kind    ledger.PoolKind
	pools   map[uint64]ledger.Pool
	records map[uint64]ledger.Record
	details map[uint64]D
	nextID  uint64
	err     error
}

func newFakeLedger[D any](kind ledger.PoolKind) *fakeLedger[D] {
	return &fakeLedger[D]{
		kind:    kind,
		pools:   map[uint64]ledger.Pool{},
		records: map[uint64]ledger.Record{},
		details: map[uint64]D{},
		nextID:  100,
	}
}

func (f *fakeLedger[D]) addPool(id uint64, total, remaining int) {
	f.pools[id] = ledger.Pool{Key: ledger.PoolKey{Kind: f.kind, ID: id}, Total: total, Remaining: remaining}
}

func (f *fakeLedger[D]) Kind() ledger.PoolKind { return f.kind }

func (f *fakeLedger[D]) Reserve(_ context.Context, poolID uint64, qty int, d D) (ledger.Record, ledger.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.Record{}, ledger.Pool{}, f.err
	}
	p, ok := f.pools[poolID]
	if !ok {
		return ledger.Record{}, ledger.Pool{}, ledger.ErrPoolNotFound
	}
	if err := p.Take(qty); err != nil {
		return ledger.Record{}, ledger.Pool{}, err
	}
	f.pools[poolID] = p
	f.nextID++
	rec := ledger.Record{ID: f.nextID, Pool: p.Key, Quantity: qty, Status: ledger.StatusPending}
	f.records[rec.ID] = rec
	f.details[rec.ID] = d
	return rec, p, nil
}

func (f *fakeLedger[D]) Cancel(_ context.Context, id uint64) (ledger.Record, ledger.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return ledger.Record{}, ledger.Pool{}, ledger.ErrRecordNotFound
	}
	if err := rec.Transition(ledger.StatusCancelled); err != nil {
		return ledger.Record{}, ledger.Pool{}, err
	}
	p := f.pools[rec.Pool.ID]
	if err := p.Give(rec.Quantity); err != nil {
		return ledger.Record{}, ledger.Pool{}, err
	}
	f.pools[p.Key.ID] = p
	f.records[id] = rec
	return rec, p, nil
}

func (f *fakeLedger[D]) move(id uint64, next ledger.Status) (ledger.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return ledger.Record{}, ledger.ErrRecordNotFound
	}
	if err := rec.Transition(next); err != nil {
		return ledger.Record{}, err
	}
	f.records[id] = rec
	return rec, nil
}

func (f *fakeLedger[D]) Confirm(_ context.Context, id uint64) (ledger.Record, error) {
	return f.move(id, ledger.StatusConfirmed)
}

func (f *fakeLedger[D]) Complete(_ context.Context, id uint64) (ledger.Record, error) {
	return f.move(id, ledger.StatusCompleted)
}

func (f *fakeLedger[D]) Resize(_ context.Context, poolID uint64, total int) (ledger.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[poolID]
	if !ok {
		return ledger.Pool{}, ledger.ErrPoolNotFound
	}
	if err := p.Resize(total); err != nil {
		return ledger.Pool{}, err
	}
	f.pools[poolID] = p
	return p, nil
}

type fakeRooms struct{ rooms map[uint64]*model.Room }

func (f *fakeRooms) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	rm, ok := f.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rm
	return &cp, nil
}

func (f *fakeRooms) Create(_ context.Context, rm *model.Room) error {
	rm.ID = uint64(len(f.rooms) + 1)
	rm.AvailableRooms = rm.TotalRooms
	f.rooms[rm.ID] = rm
	return nil
}

func (f *fakeRooms) UpdateDetails(_ context.Context, rm *model.Room) error {
	cur, ok := f.rooms[rm.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.RoomType, cur.Description = rm.RoomType, rm.Description
	cur.PricePerNightCents, cur.Capacity = rm.PricePerNightCents, rm.Capacity
	*rm = *cur
	return nil
}

func (f *fakeRooms) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rooms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rooms, id)
	return nil
}

// fakeReservations reads back what the fake room ledger stored.
type fakeReservations struct {
	l *fakeLedger[*model.HotelReservation]
}

func (f *fakeReservations) GetByID(_ context.Context, id uint64) (*repository.HotelReservationDetail, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	rec, ok := f.l.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	res := *f.l.details[id]
	res.ID, res.RoomID, res.NumRooms, res.Status = rec.ID, rec.Pool.ID, rec.Quantity, rec.Status
	return &repository.HotelReservationDetail{HotelReservation: res, HotelName: "Alpine Lodge"}, nil
}

func (f *fakeReservations) List(ctx context.Context, q repository.ReservationQuery) ([]repository.HotelReservationDetail, error) {
	var out []repository.HotelReservationDetail
	for id := range f.l.records {
		d, _ := f.GetByID(ctx, id)
		if q.UserID == nil || d.UserID == *q.UserID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeTours struct{ tours map[uint64]*model.Tour }

func (f *fakeTours) GetByID(_ context.Context, id uint64) (*model.Tour, error) {
	t, ok := f.tours[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTours) Create(_ context.Context, t *model.Tour) error {
	t.ID = uint64(len(f.tours) + 1)
	t.AvailableSpots = t.MaxParticipants
	t.IsActive = true
	f.tours[t.ID] = t
	return nil
}

func (f *fakeTours) UpdateDetails(_ context.Context, t *model.Tour) error {
	cur, ok := f.tours[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	t.MaxParticipants, t.AvailableSpots, t.IsActive = cur.MaxParticipants, cur.AvailableSpots, cur.IsActive
	f.tours[t.ID] = t
	return nil
}

func (f *fakeTours) Deactivate(_ context.Context, id uint64) error {
	t, ok := f.tours[id]
	if !ok || !t.IsActive {
		return repository.ErrNotFound
	}
	t.IsActive = false
	return nil
}

type fakeBookings struct {
	l *fakeLedger[*model.TourBooking]
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (*repository.TourBookingDetail, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	rec, ok := f.l.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b := *f.l.details[id]
	b.ID, b.TourID, b.NumParticipants, b.Status = rec.ID, rec.Pool.ID, rec.Quantity, rec.Status
	return &repository.TourBookingDetail{TourBooking: b, TourName: "Andes Trek"}, nil
}

func (f *fakeBookings) List(ctx context.Context, userID *uint64) ([]repository.TourBookingDetail, error) {
	var out []repository.TourBookingDetail
	for id := range f.l.records {
		d, _ := f.GetByID(ctx, id)
		if userID == nil || d.UserID == *userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) last() queue.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type recordingCache struct {
	mu     sync.Mutex
	groups []string
}

func (c *recordingCache) Invalidate(_ context.Context, groups ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = append(c.groups, groups...)
	return nil
}

type fakeHotels struct{ hotels map[uint64]*model.Hotel }

func (f *fakeHotels) GetByID(_ context.Context, id uint64) (*model.Hotel, error) {
	h, ok := f.hotels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeHotels) Create(_ context.Context, h *model.Hotel) error {
	h.ID = uint64(len(f.hotels) + 1)
	h.IsActive = true
	f.hotels[h.ID] = h
	return nil
}

func (f *fakeHotels) Update(_ context.Context, h *model.Hotel) error {
	f.hotels[h.ID] = h
	return nil
}

func (f *fakeHotels) Deactivate(_ context.Context, id uint64) error {
	h, ok := f.hotels[id]
	if !ok {
		return repository.ErrNotFound
	}
	h.IsActive = false
	return nil
}
