package history

import (
	"time"

	"riskyrun.app/internal/game/ledger"
)

// Snapshot is an immutable point-in-time copy of every player's totals.
type Snapshot struct {
	Seq     int                     `json:"seq"`
	Time    time.Time               `json:"time"`
	Scores  map[ledger.PlayerID]int `json:"scores"`
	Claimed map[ledger.PlayerID]int `json:"claimed_areas"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Seq:     s.Seq,
		Time:    s.Time,
		Scores:  make(map[ledger.PlayerID]int, len(s.Scores)),
		Claimed: make(map[ledger.PlayerID]int, len(s.Claimed)),
	}
	for k, v := range s.Scores {
		out.Scores[k] = v
	}
	for k, v := range s.Claimed {
		out.Claimed[k] = v
	}
	return out
}

// Recorder is an append-only, call-ordered snapshot sequence.
type Recorder struct {
	snaps []Snapshot
}

func NewRecorder() *Recorder { return &Recorder{} }

// Record appends one snapshot built from view and returns a copy of it.
func (r *Recorder) Record(view ledger.View, ts time.Time) Snapshot {
	s := Snapshot{
		Seq:     len(r.snaps) + 1,
		Time:    ts,
		Scores:  make(map[ledger.PlayerID]int, len(view.Stats)),
		Claimed: make(map[ledger.PlayerID]int, len(view.Stats)),
	}
	for p, st := range view.Stats {
		s.Scores[p] = st.Score
		s.Claimed[p] = st.Claimed
	}
	r.snaps = append(r.snaps, s)
	return s.clone()
}

func (r *Recorder) Len() int { return len(r.snaps) }

// Snapshots returns a deep copy of the sequence in record order.
func (r *Recorder) Snapshots() []Snapshot {
	out := make([]Snapshot, len(r.snaps))
	for i, s := range r.snaps {
		out[i] = s.clone()
	}
	return out
}
