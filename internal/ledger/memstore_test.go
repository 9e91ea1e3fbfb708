package ledger

import (
	"context"
	"errors"
	"sync"
)

// memStore is an in-memory Store used by the ledger tests.  Writes are
// buffered in the transaction and applied on Commit.
type memStore struct {
	kind PoolKind

	mu         sync.Mutex
	pools      map[uint64]Pool
	records    map[uint64]Record
	notes      map[uint64]string
	nextID     uint64
	failCommit error
	commits    int
}

func newMemStore(kind PoolKind) *memStore {
	return &memStore{
		kind:    kind,
		pools:   make(map[uint64]Pool),
		records: make(map[uint64]Record),
		notes:   make(map[uint64]string),
	}
}

func (s *memStore) addPool(id uint64, total, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[id] = Pool{Key: PoolKey{Kind: s.kind, ID: id}, Total: total, Remaining: remaining}
}

func (s *memStore) pool(id uint64) Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pools[id]
}

func (s *memStore) record(id uint64) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *memStore) setStatus(id uint64, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[id]
	r.Status = st
	s.records[id] = r
}

func (s *memStore) Kind() PoolKind { return s.kind }

func (s *memStore) PeekRecord(_ context.Context, id uint64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return r, nil
}

func (s *memStore) Begin(context.Context) (Tx[string], error) {
	return &memTx{
		s:       s,
		pools:   make(map[uint64]Pool),
		records: make(map[uint64]Record),
		notes:   make(map[uint64]string),
	}, nil
}

type memTx struct {
	s       *memStore
	pools   map[uint64]Pool
	records map[uint64]Record
	notes   map[uint64]string
	done    bool
}

func (t *memTx) LockPool(_ context.Context, id uint64) (Pool, error) {
	if p, ok := t.pools[id]; ok {
		return p, nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.pools[id]
	if !ok {
		return Pool{}, ErrPoolNotFound
	}
	return p, nil
}

func (t *memTx) SavePool(_ context.Context, p Pool) error {
	t.pools[p.Key.ID] = p
	return nil
}

func (t *memTx) LockRecord(_ context.Context, id uint64) (Record, error) {
	if r, ok := t.records[id]; ok {
		return r, nil
	}
	return t.s.PeekRecord(context.Background(), id)
}

func (t *memTx) InsertRecord(_ context.Context, rec *Record, note string) error {
	t.s.mu.Lock()
	t.s.nextID++
	rec.ID = t.s.nextID
	t.s.mu.Unlock()
	t.records[rec.ID] = *rec
	t.notes[rec.ID] = note
	return nil
}

func (t *memTx) SaveStatus(_ context.Context, rec Record) error {
	t.records[rec.ID] = rec
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("memtx: already finished")
	}
	t.done = true
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.failCommit != nil {
		return t.s.failCommit
	}
	for id, p := range t.pools {
		t.s.pools[id] = p
	}
	for id, r := range t.records {
		t.s.records[id] = r
	}
	for id, n := range t.notes {
		t.s.notes[id] = n
	}
	t.s.commits++
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

// busyLocker always reports contention.
type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) { return nil, ErrContention }
