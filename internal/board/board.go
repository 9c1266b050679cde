package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"riskyrun.app/internal/game/catalogs"
	"riskyrun.app/internal/game/engine"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/ledger"
	"riskyrun.app/internal/game/region"
	"riskyrun.app/internal/protocol"
)

var ErrBadEvent = errors.New("bad event")

// Event is one serialized UI input.
type Event struct {
	Kind     string
	RegionID string
	PlayerID string
	Points   int
}

// ClaimEntry is the audit record written for every commit.
type ClaimEntry struct {
	Seq        int       `json:"seq"`
	Time       time.Time `json:"time"`
	RegionID   string    `json:"region_id"`
	Kind       string    `json:"kind"`
	Actor      string    `json:"actor"`
	PrevOwner  string    `json:"prev_owner,omitempty"`
	NewOwner   string    `json:"new_owner,omitempty"`
	Credited   int       `json:"credited"`
	Debited    int       `json:"debited"`
	PointValue int       `json:"point_value"`
}

type HistorySink interface {
	WriteSnapshot(s history.Snapshot) error
}

type ClaimSink interface {
	WriteClaim(e ClaimEntry) error
}

type Config struct {
	Engine  *engine.Engine
	Regions *catalogs.Regions
	Logger  *log.Logger

	History HistorySink
	Claims  ClaimSink
}

// Board owns the engine and serializes every event through one goroutine.
// Only the Run goroutine touches engine state.
type Board struct {
	eng     *engine.Engine
	log     *log.Logger
	welcome protocol.WelcomeMsg

	historySink HistorySink
	claimSink   ClaimSink

	sel        engine.Selection
	seq        uint64
	lastCommit *protocol.CommitView
	subs       map[string]chan []byte

	inbox       chan submitReq
	subscribe   chan subscribeReq
	unsubscribe chan string
	historyReq  chan chan []history.Snapshot
	stateReq    chan chan protocol.StateMsg
	done        chan struct{}

	commits  atomic.Uint64
	previews atomic.Uint64
	rejected atomic.Uint64
	nsubs    atomic.Int64
}

type submitReq struct {
	ev   Event
	resp chan submitResp
}

type submitResp struct {
	state protocol.StateMsg
	err   error
}

type subscribeReq struct {
	resp chan Subscription
}

// Subscription delivers encoded STATE messages, latest wins.
type Subscription struct {
	ID      string
	C       <-chan []byte
	Initial protocol.StateMsg
}

func New(cfg Config) (*Board, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("board: nil engine")
	}
	b := &Board{
		eng:         cfg.Engine,
		log:         cfg.Logger,
		historySink: cfg.History,
		claimSink:   cfg.Claims,
		subs:        map[string]chan []byte{},
		inbox:       make(chan submitReq, 64),
		subscribe:   make(chan subscribeReq),
		unsubscribe: make(chan string, 16),
		historyReq:  make(chan chan []history.Snapshot),
		stateReq:    make(chan chan protocol.StateMsg),
		done:        make(chan struct{}),
	}
	if b.log == nil {
		b.log = log.New(io.Discard, "", 0)
	}
	tune := cfg.Engine.Tuning()
	if len(tune.Players) > 0 {
		b.sel.Player = ledger.PlayerID(tune.Players[0].ID)
	}
	b.welcome = buildWelcome(cfg.Engine, cfg.Regions)
	return b, nil
}

func buildWelcome(e *engine.Engine, cat *catalogs.Regions) protocol.WelcomeMsg {
	tune := e.Tuning()
	w := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		MinPointValue:   tune.MinPointValue,
		MaxPointValue:   tune.StartingPoints,
	}
	for _, p := range tune.Players {
		w.Players = append(w.Players, protocol.PlayerInfo{ID: p.ID, Name: p.Name, Color: p.Color})
	}
	for _, id := range e.RegionIDs() {
		ri := protocol.RegionInfo{ID: string(id), Name: string(id)}
		if cat != nil {
			if d, ok := cat.ByID[string(id)]; ok {
				ri.Name = d.Name
				ri.Label = d.Label
			}
		}
		w.Regions = append(w.Regions, ri)
	}
	return w
}

// Welcome returns the static session greeting with a fresh session id.
func (b *Board) Welcome() protocol.WelcomeMsg {
	w := b.welcome
	w.SessionID = uuid.NewString()
	return w
}

func (b *Board) Run(ctx context.Context) error {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			for id, ch := range b.subs {
				close(ch)
				delete(b.subs, id)
			}
			return ctx.Err()
		case req := <-b.inbox:
			st, err := b.apply(req.ev)
			req.resp <- submitResp{state: st, err: err}
		case req := <-b.subscribe:
			id := uuid.NewString()
			ch := make(chan []byte, 8)
			b.subs[id] = ch
			b.nsubs.Store(int64(len(b.subs)))
			req.resp <- Subscription{ID: id, C: ch, Initial: b.state()}
		case id := <-b.unsubscribe:
			if ch, ok := b.subs[id]; ok {
				delete(b.subs, id)
				b.nsubs.Store(int64(len(b.subs)))
				close(ch)
			}
		case resp := <-b.historyReq:
			resp <- b.eng.ExportHistory()
		case resp := <-b.stateReq:
			resp <- b.state()
		}
	}
}

// Submit hands ev to the board loop and waits for the resulting state.
// On error the returned state is the unchanged current state.
func (b *Board) Submit(ctx context.Context, ev Event) (protocol.StateMsg, error) {
	resp := make(chan submitResp, 1)
	select {
	case b.inbox <- submitReq{ev: ev, resp: resp}:
	case <-ctx.Done():
		return protocol.StateMsg{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.state, r.err
	case <-ctx.Done():
		return protocol.StateMsg{}, ctx.Err()
	}
}

func (b *Board) Subscribe(ctx context.Context) (Subscription, error) {
	resp := make(chan Subscription, 1)
	select {
	case b.subscribe <- subscribeReq{resp: resp}:
	case <-ctx.Done():
		return Subscription{}, ctx.Err()
	}
	select {
	case s := <-resp:
		return s, nil
	case <-ctx.Done():
		return Subscription{}, ctx.Err()
	}
}

// Unsubscribe is safe to call after Run has returned; Run closes every
// remaining subscription on exit.
func (b *Board) Unsubscribe(id string) {
	select {
	case b.unsubscribe <- id:
	case <-b.done:
	}
}

// History returns the ordered snapshot sequence recorded so far.
func (b *Board) History(ctx context.Context) ([]history.Snapshot, error) {
	resp := make(chan []history.Snapshot, 1)
	select {
	case b.historyReq <- resp:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case s := <-resp:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State returns the current STATE without applying an event.
func (b *Board) State(ctx context.Context) (protocol.StateMsg, error) {
	resp := make(chan protocol.StateMsg, 1)
	select {
	case b.stateReq <- resp:
	case <-ctx.Done():
		return protocol.StateMsg{}, ctx.Err()
	}
	select {
	case st := <-resp:
		return st, nil
	case <-ctx.Done():
		return protocol.StateMsg{}, ctx.Err()
	}
}

// ExportCSV writes one history metric in the spreadsheet layout.
func (b *Board) ExportCSV(ctx context.Context, w io.Writer, metric history.Metric) error {
	snaps, err := b.History(ctx)
	if err != nil {
		return err
	}
	tune := b.eng.Tuning()
	cols := make([]history.Column, 0, len(tune.Players))
	for _, p := range tune.Players {
		cols = append(cols, history.Column{ID: ledger.PlayerID(p.ID), Label: p.Name})
	}
	return history.WriteCSV(w, metric, cols, snaps, tune.CSVStartLabel, tune.CSVTimeLayout)
}

func (b *Board) apply(ev Event) (protocol.StateMsg, error) {
	var err error
	changed := true
	rid := region.ID(ev.RegionID)
	switch ev.Kind {
	case protocol.EventHoverEnter:
		_, err = b.eng.HoverEnter(b.sel, rid)
		if err == nil {
			b.previews.Add(1)
		}
	case protocol.EventHoverExit:
		changed = b.eng.HoverExit(rid)
	case protocol.EventClick:
		var res engine.CommitResult
		res, err = b.eng.Click(b.sel, rid)
		if err == nil {
			b.afterCommit(res)
		}
	case protocol.EventSelectPlayer:
		p := ledger.PlayerID(ev.PlayerID)
		if !b.eng.HasPlayer(p) {
			b.log.Printf("select rejected: unknown player %q", ev.PlayerID)
			err = fmt.Errorf("%w: %q", engine.ErrUnknownPlayer, ev.PlayerID)
			break
		}
		if p == b.sel.Player {
			changed = false
			break
		}
		b.sel.Player = p
		b.repreview()
	case protocol.EventSetPoints:
		err = b.eng.SetPointValue(rid, ev.Points)
	default:
		err = fmt.Errorf("%w: kind %q", ErrBadEvent, ev.Kind)
	}
	if err != nil {
		b.rejected.Add(1)
		return b.state(), err
	}
	if !changed {
		return b.state(), nil
	}

	b.seq++
	st := b.state()
	b.broadcast(st)
	return st, nil
}

// repreview recomputes a live hover preview for the newly selected player.
func (b *Board) repreview() {
	pv, ok := b.eng.ActivePreview()
	if !ok {
		return
	}
	if _, err := b.eng.HoverEnter(b.sel, pv.Region); err != nil {
		b.log.Printf("re-preview %s: %v", pv.Region, err)
		b.eng.HoverExit(pv.Region)
		return
	}
	b.previews.Add(1)
}

func (b *Board) afterCommit(res engine.CommitResult) {
	b.commits.Add(1)
	b.lastCommit = &protocol.CommitView{
		RegionID:  string(res.Region),
		Kind:      string(res.Kind),
		Actor:     string(res.Actor),
		PrevOwner: string(res.PrevOwner),
		NewOwner:  string(res.NewOwner),
		Credited:  res.Credited,
		Debited:   res.Debited,
	}
	b.log.Printf("commit %s region=%s actor=%s prev=%s credited=%d debited=%d value=%d",
		res.Kind, res.Region, res.Actor, res.PrevOwner, res.Credited, res.Debited, res.PointValue)

	if b.historySink != nil {
		if err := b.historySink.WriteSnapshot(res.Snapshot); err != nil {
			b.log.Printf("history sink: %v", err)
		}
	}
	if b.claimSink != nil {
		entry := ClaimEntry{
			Seq:        res.Snapshot.Seq,
			Time:       res.Snapshot.Time,
			RegionID:   string(res.Region),
			Kind:       string(res.Kind),
			Actor:      string(res.Actor),
			PrevOwner:  string(res.PrevOwner),
			NewOwner:   string(res.NewOwner),
			Credited:   res.Credited,
			Debited:    res.Debited,
			PointValue: res.PointValue,
		}
		if err := b.claimSink.WriteClaim(entry); err != nil {
			b.log.Printf("claim sink: %v", err)
		}
	}
}

func (b *Board) state() protocol.StateMsg {
	st := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Seq:             b.seq,
		SelectedPlayer:  string(b.sel.Player),
		LastCommit:      b.lastCommit,
	}
	if pv, ok := b.eng.ActivePreview(); ok {
		st.PreviewRegion = string(pv.Region)
	}
	for _, d := range b.eng.DisplayStates() {
		st.Regions = append(st.Regions, protocol.RegionView{
			RegionID:     string(d.Region),
			Owner:        string(d.Owner),
			FillColor:    d.FillColor,
			FillOpacity:  d.FillOpacity,
			StrokeWeight: d.StrokeWeight,
			PointValue:   d.PointValue,
			PointLabel:   d.PointLabel,
			Previewing:   d.Previewing,
		})
	}
	for _, r := range b.eng.ScoreboardView() {
		sv := protocol.ScoreView{
			PlayerID:     string(r.Player),
			Name:         r.Name,
			Color:        r.Color,
			Score:        r.Stats.Score,
			ClaimedAreas: r.Stats.Claimed,
			IsPreview:    r.IsPreview,
		}
		if r.IsPreview {
			sv.ScoreDelta = engine.FormatDelta(r.PreviewDelta.Score)
			sv.ClaimedDelta = engine.FormatDelta(r.PreviewDelta.Claimed)
		}
		st.Scoreboard = append(st.Scoreboard, sv)
	}
	return st
}

func (b *Board) broadcast(st protocol.StateMsg) {
	if len(b.subs) == 0 {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		b.log.Printf("encode state: %v", err)
		return
	}
	for _, ch := range b.subs {
		sendLatest(ch, raw)
	}
}

func sendLatest(ch chan []byte, msg []byte) {
	select {
	case ch <- msg:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

// ErrorCode maps an apply error to a protocol error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrUnknownPlayer):
		return protocol.ErrUnknownPlayer
	case errors.Is(err, engine.ErrUnknownRegion):
		return protocol.ErrUnknownRegion
	case errors.Is(err, engine.ErrBadPointValue):
		return protocol.ErrBadPointValue
	case errors.Is(err, ErrBadEvent):
		return protocol.ErrBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return protocol.ErrBoardBusy
	default:
		return protocol.ErrInternal
	}
}

type Metrics struct {
	Commits     uint64
	Previews    uint64
	Rejected    uint64
	Subscribers int64
	InboxDepth  int
}

// Metrics is safe to call from any goroutine.
func (b *Board) Metrics() Metrics {
	return Metrics{
		Commits:     b.commits.Load(),
		Previews:    b.previews.Load(),
		Rejected:    b.rejected.Load(),
		Subscribers: b.nsubs.Load(),
		InboxDepth:  len(b.inbox),
	}
}
