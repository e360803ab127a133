package reconcile

import (
	"strconv"
	"strings"
	"sync"
)

// DeltaStore holds the signed adjustments staked per record id. It is keyed
// by id only, so edits survive page and search changes.
type DeltaStore struct {
	mu     sync.RWMutex
	deltas map[int64]int64
}

func NewDeltaStore() *DeltaStore {
	return &DeltaStore{deltas: make(map[int64]int64)}
}

// ParseDelta parses raw row input. ok is false when the input means "no
// delta yet": empty, or a lone sign while the user is still typing.
func ParseDelta(raw string) (amount int64, ok bool, err error) {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "-", "+":
		return 0, false, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, &ValidationError{Field: "delta", Msg: "not an integer: " + strconv.Quote(raw)}
	}
	return n, n != 0, nil
}

// Set replaces the delta for id. Invalid input is rejected and the prior
// value kept.
func (s *DeltaStore) Set(id int64, raw string) error {
	amount, ok, err := ParseDelta(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		delete(s.deltas, id)
		return nil
	}
	s.deltas[id] = amount
	return nil
}

func (s *DeltaStore) Get(id int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deltas[id]
	return d, ok
}

// NewTotal is the preview shown next to a row: balance plus the staked delta.
func (s *DeltaStore) NewTotal(id, balance int64) int64 {
	d, _ := s.Get(id)
	return balance + d
}

// Pending returns a copy of every non-zero delta.
func (s *DeltaStore) Pending() map[int64]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]int64, len(s.deltas))
	for id, d := range s.deltas {
		out[id] = d
	}
	return out
}

func (s *DeltaStore) Forget(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.deltas, id)
	}
}

func (s *DeltaStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.deltas)
}

func (s *DeltaStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deltas)
}
