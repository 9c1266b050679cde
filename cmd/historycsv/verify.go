package main

import (
	"fmt"
	"time"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/catalogs"
	"riskyrun.app/internal/game/engine"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/ledger"
	"riskyrun.app/internal/game/region"
	"riskyrun.app/internal/game/tuning"
)

// verifyClaims replays the claim journal through a fresh engine and checks
// every commit reproduces the journaled snapshot. A claim with seq 1 starts
// a new server session.
func verifyClaims(tune tuning.Tuning, regions *catalogs.Regions, claims []board.ClaimEntry, snaps []history.Snapshot) error {
	if len(claims) != len(snaps) {
		return fmt.Errorf("journal length mismatch: claims=%d snapshots=%d", len(claims), len(snaps))
	}
	ids := make([]region.ID, 0, len(regions.Order))
	for _, id := range regions.Order {
		ids = append(ids, region.ID(id))
	}

	var (
		eng *engine.Engine
		now time.Time
	)
	for i, c := range claims {
		if eng == nil || c.Seq == 1 {
			e, err := engine.New(engine.Config{
				Tuning:  tune,
				Regions: ids,
				Now:     func() time.Time { return now },
			})
			if err != nil {
				return err
			}
			eng = e
		}
		now = c.Time
		rid := region.ID(c.RegionID)

		// Operator overrides are not journaled; the credited value is the
		// value the region carried at commit time.
		if c.Kind != string(engine.KindUnclaim) {
			if st, ok := eng.Region(rid); ok && st.PointValue != c.Credited {
				if err := eng.SetPointValue(rid, c.Credited); err != nil {
					return fmt.Errorf("claim %d: %w", i, err)
				}
			}
		}
		res, err := eng.CommitClaim(rid, ledger.PlayerID(c.Actor))
		if err != nil {
			return fmt.Errorf("claim %d: %w", i, err)
		}
		if string(res.Kind) != c.Kind || res.Credited != c.Credited || res.Debited != c.Debited || res.PointValue != c.PointValue {
			return fmt.Errorf("claim %d (%s on %s): replay got kind=%s credited=%d debited=%d value=%d",
				i, c.Kind, c.RegionID, res.Kind, res.Credited, res.Debited, res.PointValue)
		}
		if err := sameTotals(res.Snapshot, snaps[i]); err != nil {
			return fmt.Errorf("claim %d: %w", i, err)
		}
	}
	return nil
}

func sameTotals(got, want history.Snapshot) error {
	if got.Seq != want.Seq {
		return fmt.Errorf("seq %d != journaled %d", got.Seq, want.Seq)
	}
	for p, v := range want.Scores {
		if got.Scores[p] != v {
			return fmt.Errorf("seq %d player %s score %d != journaled %d", want.Seq, p, got.Scores[p], v)
		}
	}
	for p, v := range want.Claimed {
		if got.Claimed[p] != v {
			return fmt.Errorf("seq %d player %s claimed %d != journaled %d", want.Seq, p, got.Claimed[p], v)
		}
	}
	return nil
}
