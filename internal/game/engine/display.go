package engine

import (
	"fmt"
	"strconv"

	"riskyrun.app/internal/game/ledger"
	"riskyrun.app/internal/game/region"
)

// DisplayState is what the renderer needs for one region.
type DisplayState struct {
	Region       region.ID
	Owner        ledger.PlayerID
	FillColor    string
	FillOpacity  float64
	StrokeWeight int
	PointValue   int
	PointLabel   string
	Previewing   bool
}

func (e *Engine) DisplayState(id region.ID) (DisplayState, error) {
	st, ok := e.regions.Get(id)
	if !ok {
		return DisplayState{}, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
	}
	return e.displayState(st), nil
}

// DisplayStates returns every region in catalog order.
func (e *Engine) DisplayStates() []DisplayState {
	ids := e.regions.IDs()
	out := make([]DisplayState, 0, len(ids))
	for _, id := range ids {
		st, _ := e.regions.Get(id)
		out = append(out, e.displayState(st))
	}
	return out
}

func (e *Engine) displayState(st region.ClaimState) DisplayState {
	ds := DisplayState{
		Region:       st.ID,
		Owner:        st.Owner,
		FillColor:    e.tune.UnclaimedFill,
		FillOpacity:  e.tune.Opacities.Unclaimed,
		StrokeWeight: e.tune.Weights.Normal,
		PointValue:   st.PointValue,
		PointLabel:   pointLabel(st),
	}
	if st.Owned() {
		ds.FillColor = e.tune.PlayerColor(string(st.Owner))
		ds.FillOpacity = e.tune.Opacities.Claimed
		if e.lastCommitted == st.ID {
			ds.StrokeWeight = e.tune.Weights.RecentlyClaimed
		}
	}
	if p := e.preview; p != nil && p.region == st.ID {
		ds.FillColor = e.tune.PlayerColor(string(p.actor))
		ds.FillOpacity = e.tune.Opacities.Hovering
		ds.Previewing = true
	}
	return ds
}

// pointLabel is "V", or "V (P)" once the current value differs from the
// value last awarded.
func pointLabel(st region.ClaimState) string {
	v := strconv.Itoa(st.PointValue)
	if !st.HasLastAwarded || st.LastAwarded == st.PointValue {
		return v
	}
	return v + " (" + strconv.Itoa(st.LastAwarded) + ")"
}

// ScoreRow is one scoreboard line. While a preview is active the affected
// players keep their real totals and carry the pending delta.
type ScoreRow struct {
	Player       ledger.PlayerID
	Name         string
	Color        string
	Stats        ledger.Stats
	IsPreview    bool
	PreviewDelta ledger.Stats
}

func (e *Engine) ScoreboardView() []ScoreRow {
	var pv *PreviewResult
	if e.preview != nil {
		pv = &e.preview.result
	}
	rows := make([]ScoreRow, 0, len(e.tune.Players))
	for _, p := range e.tune.Players {
		id := ledger.PlayerID(p.ID)
		st, _ := e.ledger.Get(id)
		row := ScoreRow{Player: id, Name: p.Name, Color: p.Color, Stats: st}
		if pv != nil {
			if d, ok := pv.Delta(id); ok {
				row.IsPreview = true
				row.PreviewDelta = d
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatDelta renders a delta annotation: "+4", "-3", "0".
func FormatDelta(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
