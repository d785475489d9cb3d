// Package dedupe collapses duplicate observations and tracks processed ids.
package dedupe

import (
	"github.com/okian/goalcast/internal/domain/model"
)

// KeepLast returns obs with exactly one record per (game, player, date),
// preferring the most recently ingested one: the highest Seq, and for equal
// Seq the later position in obs. Survivors keep their relative input order.
//
// KeepLast is idempotent: KeepLast(KeepLast(x)) has the same rows as KeepLast(x).
func KeepLast(obs []model.Observation) (out []model.Observation, removed int) {
	winner := make(map[model.Key]int, len(obs))
	for i, o := range obs {
		k := o.Key()
		if j, ok := winner[k]; ok && obs[j].Seq > o.Seq {
			continue
		}
		winner[k] = i
	}
	if len(winner) == len(obs) {
		return obs, 0
	}

	out = make([]model.Observation, 0, len(winner))
	for i, o := range obs {
		if winner[o.Key()] == i {
			out = append(out, o)
		}
	}
	return out, len(obs) - len(out)
}
