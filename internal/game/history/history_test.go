package history

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"riskyrun.app/internal/game/ledger"
)

func view(scores, claimed [2]int) ledger.View {
	return ledger.View{
		Players: []ledger.PlayerID{"name1", "name2"},
		Stats: map[ledger.PlayerID]ledger.Stats{
			"name1": {Score: scores[0], Claimed: claimed[0]},
			"name2": {Score: scores[1], Claimed: claimed[1]},
		},
	}
}

func TestRecorderAppendsInOrder(t *testing.T) {
	r := NewRecorder()
	t0 := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	first := r.Record(view([2]int{4, 0}, [2]int{1, 0}), t0)
	r.Record(view([2]int{0, 3}, [2]int{0, 1}), t0.Add(time.Minute))

	if first.Seq != 1 || first.Scores["name1"] != 4 {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}
	snaps := r.Snapshots()
	if len(snaps) != 2 || snaps[1].Seq != 2 || snaps[1].Claimed["name2"] != 1 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
}

func TestSnapshotsAreImmutableCopies(t *testing.T) {
	r := NewRecorder()
	got := r.Record(view([2]int{4, 0}, [2]int{1, 0}), time.Now())
	got.Scores["name1"] = 99

	snaps := r.Snapshots()
	snaps[0].Claimed["name1"] = 99

	again := r.Snapshots()
	if again[0].Scores["name1"] != 4 || again[0].Claimed["name1"] != 1 {
		t.Fatalf("recorded snapshot was mutated: %+v", again[0])
	}
}

func TestWriteCSVLayout(t *testing.T) {
	r := NewRecorder()
	t0 := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	r.Record(view([2]int{4, 0}, [2]int{1, 0}), t0)
	r.Record(view([2]int{0, 3}, [2]int{0, 1}), t0.Add(5*time.Minute))

	cols := []Column{{ID: "name1", Label: "Orange"}, {ID: "name2"}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, MetricScore, cols, r.Snapshots(), "12:15", ""); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "Time,12:15,12:30,12:35\nOrange,0,4,0\nname2,0,0,3\n"
	if buf.String() != want {
		t.Fatalf("score csv mismatch:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := WriteCSV(&buf, MetricClaimed, cols, r.Snapshots(), "12:15", ""); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want = "Time,12:15,12:30,12:35\nOrange,0,1,0\nname2,0,0,1\n"
	if buf.String() != want {
		t.Fatalf("claimed csv mismatch:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteCSVEmptyAndBadMetric(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, MetricScore, nil, nil, "12:15", ""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	snaps := []Snapshot{{Seq: 1, Time: time.Now()}}
	if err := WriteCSV(&buf, Metric("bogus"), nil, snaps, "", ""); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
	if FileName(MetricClaimed) != "area_history.csv" || FileName(MetricScore) != "score_history.csv" {
		t.Fatalf("unexpected file names")
	}
}
