// Package store caches actor progression records and persists them through
// a pluggable backend.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/state"
	"github.com/nathoo/brewcore/logging"
	"github.com/nathoo/brewcore/types"
)

// ErrNotFound is returned by a Backend when no record exists.
var ErrNotFound = errors.New("record not found")

// Backend is the durable storage for actor records.
type Backend interface {
	LoadRecord(id uuid.UUID) (*types.ActorRecord, error)
	SaveRecord(r *types.ActorRecord) error
}

// Store is the actor record cache. Get returns the same instance for an id
// until it is unloaded. All writes go through one background writer in
// FIFO order; Save returns immediately while Unload and SaveAll wait for
// their writes to land.
type Store struct {
	backend Backend
	log     logging.Logger
	now     func() time.Time

	mu      sync.RWMutex
	records map[uuid.UUID]*types.ActorRecord
	// unloading holds ids whose final write is in flight; closed when it lands.
	unloading map[uuid.UUID]chan struct{}

	sendMu sync.RWMutex
	closed bool
	writes chan writeReq
	wg     sync.WaitGroup
}

type writeReq struct {
	rec  *types.ActorRecord
	done chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = logging.OrNoOp(l) }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithQueueSize sets the write-behind buffer size.
func WithQueueSize(n int) Option {
	return func(s *Store) { s.writes = make(chan writeReq, n) }
}

// New creates a store and starts its background writer.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     logging.NoOp(),
		now:     time.Now,
		records:   map[uuid.UUID]*types.ActorRecord{},
		unloading: map[uuid.UUID]chan struct{}{},
		writes:    make(chan writeReq, 256),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s
}

func (s *Store) loop() {
	for req := range s.writes {
		if req.rec != nil {
			s.write(req.rec)
		}
		if req.done != nil {
			close(req.done)
		}
	}
}

func (s *Store) write(r *types.ActorRecord) {
	if err := s.backend.SaveRecord(r); err != nil {
		s.log.Errorf("saving actor %s: %v", r.ID, err)
	}
}

// enqueue hands a snapshot to the writer. When wait is set it blocks until
// the write completes. After Close, writes happen inline.
func (s *Store) enqueue(r *types.ActorRecord, wait bool) {
	s.sendMu.RLock()
	if s.closed {
		s.sendMu.RUnlock()
		if r != nil {
			s.write(r)
		}
		return
	}
	req := writeReq{rec: r}
	if wait {
		req.done = make(chan struct{})
	}
	s.writes <- req
	s.sendMu.RUnlock()

	if wait {
		<-req.done
	}
}

// Get returns the cached record for id, loading or creating it on a miss.
// A Get that races an Unload of the same id waits for the unload's write
// and then loads the written record.
func (s *Store) Get(id uuid.UUID) *types.ActorRecord {
	for {
		r, wait := s.cached(id)
		if r != nil {
			return r
		}
		if wait != nil {
			<-wait
			continue
		}

		loaded := s.load(id)

		s.mu.Lock()
		if r, ok := s.records[id]; ok {
			s.mu.Unlock()
			return r
		}
		if _, busy := s.unloading[id]; busy {
			// Cached and unloaded while we were loading; what we read is stale.
			s.mu.Unlock()
			continue
		}
		s.records[id] = loaded
		s.mu.Unlock()
		return loaded
	}
}

// cached returns the cached record, or the channel of an in-flight unload.
func (s *Store) cached(id uuid.UUID) (*types.ActorRecord, chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[id]; ok {
		return r, nil
	}
	return nil, s.unloading[id]
}

// Lookup returns the record for id without caching a miss. A cached record
// is returned as is; otherwise the stored record or an empty one is loaded.
func (s *Store) Lookup(id uuid.UUID) *types.ActorRecord {
	r, wait := s.cached(id)
	if r != nil {
		return r
	}
	if wait != nil {
		<-wait
	}
	return s.load(id)
}

// Cached reports whether id is in the cache.
func (s *Store) Cached(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// IDs returns the cached actor ids, sorted by string form.
func (s *Store) IDs() []uuid.UUID {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// load reads a record from the backend. A missing record yields a fresh
// one; a corrupt record yields a fresh one and a warning.
func (s *Store) load(id uuid.UUID) *types.ActorRecord {
	r, err := s.backend.LoadRecord(id)
	switch {
	case errors.Is(err, ErrNotFound):
		return state.NewRecord(id, s.now())
	case err != nil:
		s.log.Warnf("loading actor %s failed, starting fresh: %v", id, err)
		return state.NewRecord(id, s.now())
	case r == nil:
		return state.NewRecord(id, s.now())
	}
	r.ID = id
	state.Normalize(r)
	return r
}

// Save queues a snapshot of the cached record for writing. Unknown ids are
// ignored.
func (s *Store) Save(id uuid.UUID) {
	s.mu.RLock()
	r, ok := s.records[id]
	var snap *types.ActorRecord
	if ok {
		snap = state.Clone(r)
	}
	s.mu.RUnlock()
	if ok {
		s.enqueue(snap, false)
	}
}

// SaveAll writes every cached record and waits for the writes to land.
func (s *Store) SaveAll() {
	s.mu.RLock()
	snaps := make([]*types.ActorRecord, 0, len(s.records))
	for _, r := range s.records {
		snaps = append(snaps, state.Clone(r))
	}
	s.mu.RUnlock()

	for _, r := range snaps {
		s.enqueue(r, false)
	}
	s.enqueue(nil, true)
}

// Unload writes the record, waits for it to land and evicts it from the
// cache. Until the write lands, Get and Lookup for id block.
func (s *Store) Unload(id uuid.UUID) {
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	snap := state.Clone(r)
	delete(s.records, id)
	done := make(chan struct{})
	s.unloading[id] = done
	s.mu.Unlock()

	s.enqueue(snap, true)

	s.mu.Lock()
	delete(s.unloading, id)
	s.mu.Unlock()
	close(done)
}

// Flush waits until every queued write has landed.
func (s *Store) Flush() {
	s.enqueue(nil, true)
}

// Close flushes every cached record and stops the writer.
func (s *Store) Close() {
	s.SaveAll()

	s.sendMu.Lock()
	if s.closed {
		s.sendMu.Unlock()
		return
	}
	s.closed = true
	close(s.writes)
	s.sendMu.Unlock()

	s.wg.Wait()
}
