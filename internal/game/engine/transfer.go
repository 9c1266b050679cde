package engine

import (
	"riskyrun.app/internal/game/ledger"
	"riskyrun.app/internal/game/region"
)

type Kind string

const (
	KindClaim   Kind = "CLAIM"
	KindSteal   Kind = "STEAL"
	KindUnclaim Kind = "UNCLAIM"
)

type outcome struct {
	Kind      Kind
	Actor     ledger.PlayerID
	PrevOwner ledger.PlayerID
	NewOwner  ledger.PlayerID
	Credited  int
	Debited   int
}

// transfer applies the ownership change of st to actor on l. It is the only
// place score arithmetic happens; preview and commit both go through it.
// Region state is never touched here.
func transfer(l *ledger.Ledger, st region.ClaimState, actor ledger.PlayerID) outcome {
	out := outcome{Actor: actor, PrevOwner: st.Owner}
	owner := st.Owner

	if owner != "" && actor != owner {
		out.Debited = st.LastAwardedOrZero()
		l.ApplyDelta(owner, -out.Debited, -1)
	}

	if actor != owner {
		out.Credited = st.PointValue
		l.ApplyDelta(actor, out.Credited, 1)
		out.NewOwner = actor
		out.Kind = KindClaim
		if owner != "" {
			out.Kind = KindSteal
		}
		return out
	}

	out.Debited = st.LastAwardedOrZero()
	l.ApplyDelta(actor, -out.Debited, -1)
	out.Kind = KindUnclaim
	return out
}
