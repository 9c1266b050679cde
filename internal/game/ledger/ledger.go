package ledger

import "fmt"

type PlayerID string

// Stats is one player's running totals.
type Stats struct {
	Score   int `json:"score"`
	Claimed int `json:"claimed_areas"`
}

// Ledger holds score and claimed-area counters for a fixed player set.
// Negative intermediate values are allowed; callers own the invariants.
type Ledger struct {
	order []PlayerID
	stats map[PlayerID]*Stats
}

func New(players []PlayerID) (*Ledger, error) {
	l := &Ledger{
		order: make([]PlayerID, 0, len(players)),
		stats: make(map[PlayerID]*Stats, len(players)),
	}
	for _, p := range players {
		if p == "" {
			return nil, fmt.Errorf("empty player id")
		}
		if _, dup := l.stats[p]; dup {
			return nil, fmt.Errorf("duplicate player id %q", p)
		}
		l.order = append(l.order, p)
		l.stats[p] = &Stats{}
	}
	return l, nil
}

func (l *Ledger) Has(p PlayerID) bool {
	_, ok := l.stats[p]
	return ok
}

// Players returns the configured player order.
func (l *Ledger) Players() []PlayerID {
	out := make([]PlayerID, len(l.order))
	copy(out, l.order)
	return out
}

func (l *Ledger) Get(p PlayerID) (Stats, bool) {
	s, ok := l.stats[p]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// ApplyDelta adds the deltas to p. Unknown players are ignored and reported.
func (l *Ledger) ApplyDelta(p PlayerID, scoreDelta, claimedDelta int) bool {
	s, ok := l.stats[p]
	if !ok {
		return false
	}
	s.Score += scoreDelta
	s.Claimed += claimedDelta
	return true
}

// Rollback is an exact copy of up to two players' stats.
type Rollback struct {
	entries [2]rollbackEntry
	n       int
}

type rollbackEntry struct {
	player PlayerID
	stats  Stats
}

// SnapshotTwo captures a and b (b may be empty or equal to a).
func (l *Ledger) SnapshotTwo(a, b PlayerID) Rollback {
	var rb Rollback
	for _, p := range [2]PlayerID{a, b} {
		s, ok := l.stats[p]
		if !ok {
			continue
		}
		if rb.n == 1 && rb.entries[0].player == p {
			continue
		}
		rb.entries[rb.n] = rollbackEntry{player: p, stats: *s}
		rb.n++
	}
	return rb
}

func (l *Ledger) Restore(rb Rollback) {
	for i := 0; i < rb.n; i++ {
		e := rb.entries[i]
		if s, ok := l.stats[e.player]; ok {
			*s = e.stats
		}
	}
}

// Players in the rollback, in capture order.
func (rb Rollback) Players() []PlayerID {
	out := make([]PlayerID, 0, rb.n)
	for i := 0; i < rb.n; i++ {
		out = append(out, rb.entries[i].player)
	}
	return out
}

func (rb Rollback) Stats(p PlayerID) (Stats, bool) {
	for i := 0; i < rb.n; i++ {
		if rb.entries[i].player == p {
			return rb.entries[i].stats, true
		}
	}
	return Stats{}, false
}

// View is a detached copy of the whole ledger.
type View struct {
	Players []PlayerID
	Stats   map[PlayerID]Stats
}

func (l *Ledger) View() View {
	v := View{
		Players: l.Players(),
		Stats:   make(map[PlayerID]Stats, len(l.stats)),
	}
	for p, s := range l.stats {
		v.Stats[p] = *s
	}
	return v
}
