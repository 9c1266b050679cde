package region

import (
	"fmt"

	"riskyrun.app/internal/game/ledger"
)

type ID string

// ClaimState is the per-region ownership record.
// Owner == "" means unclaimed. LastAwarded keeps the value credited at the
// most recent claim even after the region is released.
type ClaimState struct {
	ID             ID
	Owner          ledger.PlayerID
	PointValue     int
	LastAwarded    int
	HasLastAwarded bool
}

func (s ClaimState) Owned() bool { return s.Owner != "" }

// LastAwardedOrZero is the amount to debit from the current owner.
func (s ClaimState) LastAwardedOrZero() int {
	if !s.HasLastAwarded {
		return 0
	}
	return s.LastAwarded
}

// Store owns one ClaimState per region for the whole session.
type Store struct {
	order  []ID
	states map[ID]*ClaimState
}

func NewStore(ids []ID, startingPoints int) (*Store, error) {
	if startingPoints < 1 {
		return nil, fmt.Errorf("starting points must be >= 1, got %d", startingPoints)
	}
	s := &Store{
		order:  make([]ID, 0, len(ids)),
		states: make(map[ID]*ClaimState, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("empty region id")
		}
		if _, dup := s.states[id]; dup {
			return nil, fmt.Errorf("duplicate region id %q", id)
		}
		s.order = append(s.order, id)
		s.states[id] = &ClaimState{ID: id, PointValue: startingPoints}
	}
	return s, nil
}

func (s *Store) Len() int { return len(s.order) }

func (s *Store) IDs() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns a copy of the region's state.
func (s *Store) Get(id ID) (ClaimState, bool) {
	st, ok := s.states[id]
	if !ok {
		return ClaimState{}, false
	}
	return *st, true
}

// Put replaces the state of an existing region. Unknown ids are rejected.
func (s *Store) Put(st ClaimState) bool {
	cur, ok := s.states[st.ID]
	if !ok {
		return false
	}
	*cur = st
	return true
}

// OwnedBy counts regions currently owned by p.
func (s *Store) OwnedBy(p ledger.PlayerID) int {
	n := 0
	for _, st := range s.states {
		if st.Owner == p {
			n++
		}
	}
	return n
}

// OwnedCount counts regions with any owner.
func (s *Store) OwnedCount() int {
	n := 0
	for _, st := range s.states {
		if st.Owned() {
			n++
		}
	}
	return n
}

// AwardedTo sums LastAwarded over regions currently owned by p.
func (s *Store) AwardedTo(p ledger.PlayerID) int {
	sum := 0
	for _, st := range s.states {
		if st.Owner == p {
			sum += st.LastAwardedOrZero()
		}
	}
	return sum
}
