package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"riskyrun.app/internal/game/ledger"
)

type Metric string

const (
	MetricScore   Metric = "score"
	MetricClaimed Metric = "claimed"
)

const DefaultTimeLayout = "15:04"

var ErrEmpty = errors.New("no history to export")

// Column is one exported player row.
type Column struct {
	ID    ledger.PlayerID
	Label string
}

// WriteCSV writes one metric as a player-by-time table:
//
//	Time,<start>,t1,t2,...
//	<label>,0,v1,v2,...
func WriteCSV(w io.Writer, metric Metric, cols []Column, snaps []Snapshot, startLabel, timeLayout string) error {
	if len(snaps) == 0 {
		return ErrEmpty
	}
	if metric != MetricScore && metric != MetricClaimed {
		return fmt.Errorf("unknown metric %q", metric)
	}
	if timeLayout == "" {
		timeLayout = DefaultTimeLayout
	}

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(snaps)+2)
	header = append(header, "Time", startLabel)
	for _, s := range snaps {
		header = append(header, s.Time.Format(timeLayout))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range cols {
		label := c.Label
		if label == "" {
			label = string(c.ID)
		}
		row := make([]string, 0, len(snaps)+2)
		row = append(row, label, "0")
		for _, s := range snaps {
			src := s.Scores
			if metric == MetricClaimed {
				src = s.Claimed
			}
			row = append(row, strconv.Itoa(src[c.ID]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName is the download name used for a metric export.
func FileName(metric Metric) string {
	if metric == MetricClaimed {
		return "area_history.csv"
	}
	return "score_history.csv"
}
