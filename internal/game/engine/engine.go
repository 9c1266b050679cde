package engine

import (
	"fmt"
	"io"
	"log"
	"time"

	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/ledger"
	"riskyrun.app/internal/game/region"
	"riskyrun.app/internal/game/tuning"
)

type Config struct {
	Tuning  tuning.Tuning
	Regions []region.ID

	// Now stamps history snapshots. Defaults to time.Now.
	Now    func() time.Time
	Logger *log.Logger
}

// Selection is the acting player credited on the next claim. It is owned by
// the caller and passed into each hover/click entry point.
type Selection struct {
	Player ledger.PlayerID
}

// Engine applies claim transfers to the player ledger and region states.
// It is not safe for concurrent use; callers serialize all calls.
type Engine struct {
	tune    tuning.Tuning
	ledger  *ledger.Ledger
	regions *region.Store
	history *history.Recorder

	// Single most-recently-committed region; empty before the first commit.
	lastCommitted region.ID

	preview *activePreview

	now func() time.Time
	log *log.Logger
}

type activePreview struct {
	region region.ID
	actor  ledger.PlayerID
	result PreviewResult
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	ids := make([]ledger.PlayerID, 0, len(cfg.Tuning.Players))
	for _, p := range cfg.Tuning.Players {
		ids = append(ids, ledger.PlayerID(p.ID))
	}
	l, err := ledger.New(ids)
	if err != nil {
		return nil, err
	}
	rs, err := region.NewStore(cfg.Regions, cfg.Tuning.StartingPoints)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		tune:    cfg.Tuning,
		ledger:  l,
		regions: rs,
		history: history.NewRecorder(),
		now:     cfg.Now,
		log:     cfg.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = log.New(io.Discard, "", 0)
	}
	return e, nil
}

// PlayerDelta is one affected player's before/after totals.
type PlayerDelta struct {
	Player ledger.PlayerID
	Before ledger.Stats
	After  ledger.Stats
}

func (d PlayerDelta) Delta() ledger.Stats {
	return ledger.Stats{
		Score:   d.After.Score - d.Before.Score,
		Claimed: d.After.Claimed - d.Before.Claimed,
	}
}

// PreviewResult is what committing would produce. Nothing is persisted.
type PreviewResult struct {
	Region    region.ID
	Kind      Kind
	Actor     ledger.PlayerID
	PrevOwner ledger.PlayerID
	NewOwner  ledger.PlayerID
	Players   []PlayerDelta
}

// Delta returns the previewed change for p, if p is affected.
func (r PreviewResult) Delta(p ledger.PlayerID) (ledger.Stats, bool) {
	for _, d := range r.Players {
		if d.Player == p {
			return d.Delta(), true
		}
	}
	return ledger.Stats{}, false
}

type CommitResult struct {
	Region    region.ID
	Kind      Kind
	Actor     ledger.PlayerID
	PrevOwner ledger.PlayerID
	NewOwner  ledger.PlayerID
	Credited  int
	Debited   int
	Players   []PlayerDelta

	// Region values after the commit.
	PointValue  int
	LastAwarded int

	Display DisplayState
	// Region that lost the recently-claimed highlight, if any.
	Released region.ID
	Snapshot history.Snapshot
}

func (e *Engine) lookup(id region.ID, actor ledger.PlayerID) (region.ClaimState, error) {
	if !e.ledger.Has(actor) {
		e.log.Printf("claim rejected: unknown player %q (region %q)", actor, id)
		return region.ClaimState{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, actor)
	}
	st, ok := e.regions.Get(id)
	if !ok {
		e.log.Printf("claim rejected: unknown region %q", id)
		return region.ClaimState{}, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
	}
	return st, nil
}

// PreviewClaim computes the result of committing actor against id without
// mutating anything: the two involved players are saved, the shared transfer
// is applied, the result read, and the saved values restored.
func (e *Engine) PreviewClaim(id region.ID, actor ledger.PlayerID) (PreviewResult, error) {
	st, err := e.lookup(id, actor)
	if err != nil {
		return PreviewResult{}, err
	}
	rb := e.ledger.SnapshotTwo(actor, st.Owner)
	out := transfer(e.ledger, st, actor)
	players := e.readDeltas(rb)
	e.ledger.Restore(rb)

	return PreviewResult{
		Region:    id,
		Kind:      out.Kind,
		Actor:     out.Actor,
		PrevOwner: out.PrevOwner,
		NewOwner:  out.NewOwner,
		Players:   players,
	}, nil
}

func (e *Engine) readDeltas(rb ledger.Rollback) []PlayerDelta {
	ps := rb.Players()
	out := make([]PlayerDelta, 0, len(ps))
	for _, p := range ps {
		before, _ := rb.Stats(p)
		after, _ := e.ledger.Get(p)
		out = append(out, PlayerDelta{Player: p, Before: before, After: after})
	}
	return out
}

// CommitClaim applies the transfer permanently, updates the region, moves the
// recently-claimed pointer and appends a history snapshot.
func (e *Engine) CommitClaim(id region.ID, actor ledger.PlayerID) (CommitResult, error) {
	st, err := e.lookup(id, actor)
	if err != nil {
		return CommitResult{}, err
	}
	rb := e.ledger.SnapshotTwo(actor, st.Owner)
	out := transfer(e.ledger, st, actor)
	players := e.readDeltas(rb)

	st.Owner = out.NewOwner
	st.LastAwarded = st.PointValue
	st.HasLastAwarded = true
	if out.Kind != KindUnclaim && st.PointValue > e.tune.MinPointValue {
		st.PointValue--
	}
	e.regions.Put(st)

	released := region.ID("")
	if e.lastCommitted != "" && e.lastCommitted != id {
		released = e.lastCommitted
	}
	e.lastCommitted = id
	e.preview = nil

	snap := e.history.Record(e.ledger.View(), e.now())

	if e.tune.AssertInvariants {
		if err := e.CheckInvariants(); err != nil {
			panic(err)
		}
	}

	return CommitResult{
		Region:      id,
		Kind:        out.Kind,
		Actor:       out.Actor,
		PrevOwner:   out.PrevOwner,
		NewOwner:    out.NewOwner,
		Credited:    out.Credited,
		Debited:     out.Debited,
		Players:     players,
		PointValue:  st.PointValue,
		LastAwarded: st.LastAwarded,
		Display:     e.displayState(st),
		Released:    released,
		Snapshot:    snap,
	}, nil
}

// HoverEnter starts (or replaces) the live preview for id.
func (e *Engine) HoverEnter(sel Selection, id region.ID) (PreviewResult, error) {
	res, err := e.PreviewClaim(id, sel.Player)
	if err != nil {
		return PreviewResult{}, err
	}
	e.preview = &activePreview{region: id, actor: sel.Player, result: res}
	return res, nil
}

// HoverExit discards the preview for id. It reports whether one was active.
func (e *Engine) HoverExit(id region.ID) bool {
	if e.preview == nil || e.preview.region != id {
		return false
	}
	e.preview = nil
	return true
}

func (e *Engine) Click(sel Selection, id region.ID) (CommitResult, error) {
	return e.CommitClaim(id, sel.Player)
}

// SetPointValue is the operator override for a region's current value.
// lastAwarded and the ledger are untouched.
func (e *Engine) SetPointValue(id region.ID, v int) error {
	st, ok := e.regions.Get(id)
	if !ok {
		e.log.Printf("set points rejected: unknown region %q", id)
		return fmt.Errorf("%w: %q", ErrUnknownRegion, id)
	}
	if v < e.tune.MinPointValue || v > e.tune.StartingPoints {
		e.log.Printf("set points rejected: region %q value %d outside [%d,%d]", id, v, e.tune.MinPointValue, e.tune.StartingPoints)
		return fmt.Errorf("%w: %d", ErrBadPointValue, v)
	}
	st.PointValue = v
	e.regions.Put(st)

	if p := e.preview; p != nil && p.region == id {
		if res, err := e.PreviewClaim(id, p.actor); err == nil {
			p.result = res
		}
	}
	return nil
}

func (e *Engine) HasPlayer(p ledger.PlayerID) bool { return e.ledger.Has(p) }

// ActivePreview returns the live preview, if any.
func (e *Engine) ActivePreview() (PreviewResult, bool) {
	if e.preview == nil {
		return PreviewResult{}, false
	}
	return e.preview.result, true
}

func (e *Engine) Region(id region.ID) (region.ClaimState, bool) { return e.regions.Get(id) }

func (e *Engine) RegionIDs() []region.ID { return e.regions.IDs() }

func (e *Engine) Stats(p ledger.PlayerID) (ledger.Stats, bool) { return e.ledger.Get(p) }

func (e *Engine) LedgerView() ledger.View { return e.ledger.View() }

func (e *Engine) LastCommitted() region.ID { return e.lastCommitted }

// ExportHistory returns the ordered snapshot sequence.
func (e *Engine) ExportHistory() []history.Snapshot { return e.history.Snapshots() }

func (e *Engine) Tuning() tuning.Tuning { return e.tune }
