package memory

import (
	"sync"

	"shortlet/internal/app/uow"
)

// Store keeps committed aggregates. Units of work stage their writes and
// apply them atomically on commit, rejecting stale versions.
type Store struct {
	mu       sync.RWMutex
	listings *table[string, listingRow]
	bookings *table[string, bookingRow]
	escrows  *table[string, escrowRow]
	payments *table[string, paymentRow]
	disputes *table[string, disputeRow]
	wallets  *table[string, walletRow]
	payouts  *table[string, payoutRow]
	reviews  *table[string, reviewRow]
}

func NewStore() *Store {
	return &Store{
		listings: newTable[string, listingRow](),
		bookings: newTable[string, bookingRow](),
		escrows:  newTable[string, escrowRow](),
		payments: newTable[string, paymentRow](),
		disputes: newTable[string, disputeRow](),
		wallets:  newTable[string, walletRow](),
		payouts:  newTable[string, payoutRow](),
		reviews:  newTable[string, reviewRow](),
	}
}

// row is a stored aggregate snapshot.
type row interface {
	version() int64
}

type table[K comparable, R row] struct {
	rows map[K]R
}

func newTable[K comparable, R row]() *table[K, R] {
	return &table[K, R]{rows: make(map[K]R)}
}

// staged holds the writes of one unit for one table.
type staged[K comparable, R row] struct {
	mu     *sync.RWMutex
	table  *table[K, R]
	writes map[K]R
	base   map[K]int64
	order  []K
}

func newStaged[K comparable, R row](mu *sync.RWMutex, t *table[K, R]) *staged[K, R] {
	return &staged[K, R]{mu: mu, table: t, writes: make(map[K]R), base: make(map[K]int64)}
}

func (s *staged[K, R]) get(key K) (R, bool) {
	if r, ok := s.writes[key]; ok {
		return r, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.table.rows[key]
	return r, ok
}

// put stages r. loaded is the version the caller read; it must match the
// latest version visible to this unit.
func (s *staged[K, R]) put(key K, loaded int64, r R) error {
	current, ok := s.get(key)
	var visible int64
	if ok {
		visible = current.version()
	}
	if loaded != visible {
		return uow.ErrConcurrentUpdate
	}
	if _, seen := s.base[key]; !seen {
		s.base[key] = visible
		s.order = append(s.order, key)
	}
	s.writes[key] = r
	return nil
}

// all returns committed rows overlaid with staged writes.
func (s *staged[K, R]) all() []R {
	s.mu.RLock()
	out := make([]R, 0, len(s.table.rows)+len(s.writes))
	for key, r := range s.table.rows {
		if _, ok := s.writes[key]; ok {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()
	for _, key := range s.order {
		out = append(out, s.writes[key])
	}
	return out
}

// check must run with the store write lock held.
func (s *staged[K, R]) check() error {
	for _, key := range s.order {
		var committed int64
		if r, ok := s.table.rows[key]; ok {
			committed = r.version()
		}
		if committed != s.base[key] {
			return uow.ErrConcurrentUpdate
		}
	}
	return nil
}

// apply must run with the store write lock held.
func (s *staged[K, R]) apply() {
	for _, key := range s.order {
		s.table.rows[key] = s.writes[key]
	}
	s.reset()
}

func (s *staged[K, R]) reset() {
	s.writes = make(map[K]R)
	s.base = make(map[K]int64)
	s.order = nil
}
