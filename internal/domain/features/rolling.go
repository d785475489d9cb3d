package features

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/goalcast/internal/domain/model"
)

// ShiftedMean returns, for each position i, the mean of the up to n values
// strictly before i. Position 0 has no history and yields 0.
func ShiftedMean(xs []float64, n int) []float64 {
	out := make([]float64, len(xs))
	if n < 1 {
		return out
	}
	for i := 1; i < len(xs); i++ {
		lo := max(0, i-n)
		out[i] = floats.Sum(xs[lo:i]) / float64(i-lo)
	}
	return out
}

// chronological orders observations by date, then ingestion order.
func chronological(a, b model.Observation) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// byPlayer groups observations per player, each group in chronological order.
// Players are returned in ascending id order.
func byPlayer(obs []model.Observation) (ids []int64, groups map[int64][]model.Observation) {
	groups = make(map[int64][]model.Observation)
	for _, o := range obs {
		groups[o.PlayerID] = append(groups[o.PlayerID], o)
	}
	ids = make([]int64, 0, len(groups))
	for id, g := range groups {
		slices.SortStableFunc(g, chronological)
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, groups
}

// playerRolling computes every player-scoped entry for one player's
// chronological history. Result is indexed [row][entry]; non-player entries
// are left unset.
func playerRolling(s Schema, history []model.Observation) [][]float64 {
	out := make([][]float64, len(history))
	for i := range out {
		out[i] = make([]float64, len(s.Entries))
	}
	col := make([]float64, len(history))
	for j, e := range s.Entries {
		if e.Scope != ScopePlayer {
			continue
		}
		for i, o := range history {
			col[i] = o.Value(e.Stat)
		}
		for i, v := range ShiftedMean(col, e.Window) {
			out[i][j] = v
		}
	}
	return out
}
