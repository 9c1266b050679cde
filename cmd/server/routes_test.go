package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/catalogs"
	"riskyrun.app/internal/game/engine"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/region"
	"riskyrun.app/internal/game/tuning"
	persistlog "riskyrun.app/internal/persistence/log"
	"riskyrun.app/internal/protocol"
)

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	eng, err := engine.New(engine.Config{
		Tuning:  tuning.Defaults(),
		Regions: []region.ID{"station", "de-haven"},
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	b, err := board.New(board.Config{Engine: eng})
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = b.Run(ctx) }()
	t.Cleanup(cancel)
	return b
}

func newTestMux(t *testing.T, b *board.Board) *http.ServeMux {
	t.Helper()
	return newMux(routeDeps{
		Board:           b,
		Logger:          log.New(io.Discard, "", 0),
		EnableAdminHTTP: true,
	})
}

func get(t *testing.T, mux http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	b := newTestBoard(t)
	mux := newTestMux(t, b)

	if rr := get(t, mux, "/healthz"); rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := b.Submit(ctx, board.Event{Kind: protocol.EventClick, RegionID: "station"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rr := get(t, mux, "/metrics")
	if rr.Code != 200 {
		t.Fatalf("metrics status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "riskyrun_board_commits_total 1\n") {
		t.Fatalf("metrics body:\n%s", rr.Body.String())
	}
}

func TestRoutes_ExportCSV(t *testing.T) {
	b := newTestBoard(t)
	mux := newTestMux(t, b)

	if rr := get(t, mux, "/v1/export/score_history.csv"); rr.Code != http.StatusNotFound {
		t.Fatalf("empty export: got %d", rr.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := b.Submit(ctx, board.Event{Kind: protocol.EventClick, RegionID: "station"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rr := get(t, mux, "/v1/export/area_history.csv")
	if rr.Code != 200 {
		t.Fatalf("export: %d %s", rr.Code, rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "area_history.csv") {
		t.Fatalf("content-disposition: %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "Time,12:15,") || lines[1] != "Player 1,0,1" {
		t.Fatalf("csv: %q", lines)
	}

	rr = get(t, mux, "/v1/history")
	var snaps []history.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("history json: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Scores["name1"] != 4 {
		t.Fatalf("history: %+v", snaps)
	}
}

func TestRoutes_AdminIsLoopbackOnly(t *testing.T) {
	b := newTestBoard(t)
	mux := newTestMux(t, b)

	// httptest requests come from 192.0.2.1.
	if rr := get(t, mux, "/admin/v1/state"); rr.Code != http.StatusForbidden {
		t.Fatalf("remote admin: got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "127.0.0.1:50000"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("loopback admin: %d %s", rr.Code, rr.Body.String())
	}
	var body adminState
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode admin state: %v", err)
	}
	if body.State.Type != protocol.TypeState || body.State.SelectedPlayer != "name1" || len(body.State.Scoreboard) != 4 {
		t.Fatalf("admin state: %+v", body.State)
	}
}

type failingSink struct{ n int }

func (f *failingSink) WriteSnapshot(history.Snapshot) error { f.n++; return errors.New("disk full") }
func (f *failingSink) WriteClaim(board.ClaimEntry) error    { f.n++; return errors.New("disk full") }

type countingSink struct{ n int }

func (c *countingSink) WriteSnapshot(history.Snapshot) error { c.n++; return nil }
func (c *countingSink) WriteClaim(board.ClaimEntry) error    { c.n++; return nil }

func TestMultiSink_WritesAllAndReportsFirstError(t *testing.T) {
	bad, good := &failingSink{}, &countingSink{}
	m := multiSink{
		history: []board.HistorySink{bad, good},
		claims:  []board.ClaimSink{bad, good},
	}
	if err := m.WriteSnapshot(history.Snapshot{}); err == nil {
		t.Fatalf("expected error")
	}
	if err := m.WriteClaim(board.ClaimEntry{}); err == nil {
		t.Fatalf("expected error")
	}
	if bad.n != 2 || good.n != 2 {
		t.Fatalf("calls: bad=%d good=%d", bad.n, good.n)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:1234": true,
		"[::1]:1234":     true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s: got %v want %v", in, got, want)
		}
	}
}

func TestCatalogLoadsShippedConfig(t *testing.T) {
	regions, err := catalogs.LoadRegions("../../configs/regions.yaml")
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	tune, err := tuning.Load("../../configs/game.yaml")
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	ids := make([]region.ID, 0, len(regions.Order))
	for _, id := range regions.Order {
		ids = append(ids, region.ID(id))
	}
	if _, err := engine.New(engine.Config{Tuning: tune, Regions: ids}); err != nil {
		t.Fatalf("engine from shipped config: %v", err)
	}
}

func TestWriteMetrics_JournalCounters(t *testing.T) {
	dir := t.TempDir()
	hl := persistlog.NewHistoryLogger(dir)
	cl := persistlog.NewClaimLogger(dir)
	t.Cleanup(func() {
		_ = hl.Close()
		_ = cl.Close()
	})
	if err := cl.WriteClaim(board.ClaimEntry{Seq: 1, RegionID: "station", Kind: "CLAIM"}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	var buf strings.Builder
	writeMetrics(&buf, board.Metrics{}, nil, []journalStatser{hl, cl})
	out := buf.String()
	for _, want := range []string{
		`riskyrun_journal_lines_total{journal="history"} 0`,
		`riskyrun_journal_lines_total{journal="claims"} 1`,
		`riskyrun_journal_files_opened_total{journal="claims"} 1`,
		`riskyrun_journal_write_errors_total{journal="claims"} 0`,
	} {
		if !strings.Contains(out, want+"\n") {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "riskyrun_index_") {
		t.Fatalf("index metrics without an index:\n%s", out)
	}
}
