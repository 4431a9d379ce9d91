// Package memory is a process-local repository.Store. Transactions are
// serialized and applied copy-on-write, so a failed WithTx leaves no trace.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type state struct {
	users        map[int]domain.User
	lots         map[int]domain.ParkingLot
	spots        map[int]domain.ParkingSpot
	reservations map[int]domain.Reservation
	lastID       map[string]int
}

func newState() *state {
	return &state{
		users:        make(map[int]domain.User),
		lots:         make(map[int]domain.ParkingLot),
		spots:        make(map[int]domain.ParkingSpot),
		reservations: make(map[int]domain.Reservation),
		lastID:       make(map[string]int),
	}
}

func (st *state) clone() *state {
	return &state{
		users:        maps.Clone(st.users),
		lots:         maps.Clone(st.lots),
		spots:        maps.Clone(st.spots),
		reservations: maps.Clone(st.reservations),
		lastID:       maps.Clone(st.lastID),
	}
}

func (st *state) nextID(table string) int {
	st.lastID[table]++
	return st.lastID[table]
}

// access hands a repository the state it may read or mutate.
type access interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

type rootAccess struct{ s *Store }

func (a rootAccess) read(fn func(st *state) error) error {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(a.s.state)
}

func (a rootAccess) write(fn func(st *state) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	next := a.s.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	a.s.state = next
	return nil
}

// txAccess works on the transaction's private copy; the store lock is already held.
type txAccess struct{ st *state }

func (a txAccess) read(fn func(st *state) error) error  { return fn(a.st) }
func (a txAccess) write(fn func(st *state) error) error { return fn(a.st) }

type repositories struct {
	a   access
	now func() time.Time
}

func (r repositories) Users() repository.UserRepository { return &userRepository{repositories: r} }
func (r repositories) Lots() repository.ParkingLotRepository {
	return &parkingLotRepository{repositories: r}
}
func (r repositories) Spots() repository.ParkingSpotRepository {
	return &parkingSpotRepository{repositories: r}
}
func (r repositories) Reservations() repository.ReservationRepository {
	return &reservationRepository{repositories: r}
}
func (r repositories) Reports() repository.ReportRepository { return &reportRepository{repositories: r} }

func (r repositories) timestamp() time.Time {
	return r.now().In(time.UTC)
}

type Store struct {
	repositories
	mu    sync.RWMutex
	state *state
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock uses now for created_at/updated_at stamps.
func NewStoreWithClock(now func() time.Time) *Store {
	s := &Store{state: newState()}
	s.repositories = repositories{a: rootAccess{s: s}, now: now}
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(repositories{a: txAccess{st: next}, now: s.now}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) Close() error { return nil }

var _ repository.Store = (*Store)(nil)
