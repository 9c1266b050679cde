package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/ledger"
)

func TestHistoryLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewHistoryLogger(dir)

	t0 := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		s := history.Snapshot{
			Seq:     i,
			Time:    t0.Add(time.Duration(i) * time.Minute),
			Scores:  map[ledger.PlayerID]int{"name1": i},
			Claimed: map[ledger.PlayerID]int{"name1": 1},
		}
		if err := l.WriteSnapshot(s); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadHistory(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d snapshots", len(got))
	}
	for i, s := range got {
		if s.Seq != i+1 || s.Scores["name1"] != i+1 || !s.Time.Equal(t0.Add(time.Duration(i+1)*time.Minute)) {
			t.Fatalf("snapshot %d: %+v", i, s)
		}
	}
	if st := l.Stats(); st.Name != HistoryJournal || st.Lines != 3 || st.Files != 1 || st.Errors != 0 || st.Bytes == 0 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestClaimLogger_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewClaimLogger(dir)
	now := time.Date(2024, 5, 1, 12, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if err := l.WriteClaim(board.ClaimEntry{Seq: 1, RegionID: "station", Kind: "CLAIM"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := l.WriteClaim(board.ClaimEntry{Seq: 2, RegionID: "station", Kind: "STEAL"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := JournalFiles(dir, ClaimJournal)
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	want := []string{"claims-2024-05-01-12.jsonl.zst", "claims-2024-05-01-13.jsonl.zst"}
	if len(files) != len(want) {
		t.Fatalf("files: %v", files)
	}
	for i, f := range files {
		if filepath.Base(f) != want[i] {
			t.Fatalf("file %d: got %s want %s", i, filepath.Base(f), want[i])
		}
	}

	claims, err := ReadClaims(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(claims) != 2 || claims[0].Kind != "CLAIM" || claims[1].Kind != "STEAL" {
		t.Fatalf("claims: %+v", claims)
	}
	if st := l.Stats(); st.Files != 2 || st.Lines != 2 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestJournal_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		j := NewJournal[map[string]int](dir, "history")
		j.now = fixed
		if err := j.Append(map[string]int{"seq": i + 1}); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := j.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	got, err := ReadJournal[map[string]int](dir, "history")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0]["seq"] != 1 || got[1]["seq"] != 2 {
		t.Fatalf("records: %v", got)
	}
}

func TestJournal_AppendErrorsAreCounted(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the journal directory should be.
	if err := os.WriteFile(filepath.Join(dir, ClaimJournal), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	l := NewClaimLogger(dir)
	if err := l.WriteClaim(board.ClaimEntry{Seq: 1}); err == nil {
		t.Fatalf("expected error")
	}
	if st := l.Stats(); st.Errors != 1 || st.Lines != 0 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestReadJournal_MissingIsEmpty(t *testing.T) {
	got, err := ReadClaims(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v %v", got, err)
	}
}
