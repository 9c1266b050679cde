package engine

// CheckInvariants verifies the ledger against the region states:
// every player's claimed count equals the regions they own, their score
// equals the values last awarded on those regions, and neither is negative.
func (e *Engine) CheckInvariants() error {
	total := 0
	for _, p := range e.ledger.Players() {
		st, _ := e.ledger.Get(p)
		owned := e.regions.OwnedBy(p)
		if st.Claimed != owned {
			return invariantf("player %q claimed=%d but owns %d regions", p, st.Claimed, owned)
		}
		if awarded := e.regions.AwardedTo(p); st.Score != awarded {
			return invariantf("player %q score=%d but owned regions awarded %d", p, st.Score, awarded)
		}
		if st.Score < 0 || st.Claimed < 0 {
			return invariantf("player %q negative totals score=%d claimed=%d", p, st.Score, st.Claimed)
		}
		total += st.Claimed
	}
	if owned := e.regions.OwnedCount(); total != owned {
		return invariantf("claimed total %d != owned regions %d", total, owned)
	}
	return nil
}
