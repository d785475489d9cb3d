// Package features turns the observation log into point-in-time feature rows.
//
// Every rolling value attached to a game only reads games ordered strictly
// before it for the same player (or team). The Schema is the single ordered
// list of columns shared by training-time assembly and inference-time
// resolution.
package features

import (
	"fmt"
	"slices"

	"github.com/okian/goalcast/internal/domain/model"
)

// SchemaVersion is bumped whenever DefaultSchema changes shape.
const SchemaVersion = 2

// Scope says whose history a feature reads.
type Scope string

const (
	// ScopePlayer reads the player's own prior games.
	ScopePlayer Scope = "player"
	// ScopeOpponent reads the opposing team's prior goals allowed.
	ScopeOpponent Scope = "opponent"
)

// Entry is one named numeric column.
type Entry struct {
	Name   string     `json:"name"`
	Scope  Scope      `json:"scope"`
	Stat   model.Stat `json:"stat"`
	Window int        `json:"window"`
}

// Schema is the ordered, versioned feature contract.
type Schema struct {
	Version int     `json:"version"`
	Window  int     `json:"window"`
	Entries []Entry `json:"entries"`
}

// rolling stats averaged over the full window.
var averaged = []model.Stat{
	model.StatGoals,
	model.StatShots,
	model.StatTimeOnIce,
	model.StatPowerPlayTOI,
	model.StatHits,
}

// previous-game stats; window 1.
var previous = []model.Stat{
	model.StatShots,
	model.StatHits,
	model.StatBlockedShots,
	model.StatPenaltyMinutes,
	model.StatTimeOnIce,
	model.StatPowerPlayTOI,
	model.StatShortHandedTOI,
}

// DefaultSchema returns the production feature set for window n.
func DefaultSchema(n int) Schema {
	s := Schema{Version: SchemaVersion, Window: n}
	for _, st := range averaged {
		s.Entries = append(s.Entries, Entry{
			Name:   fmt.Sprintf("Avg_%s_Last_%d", st, n),
			Scope:  ScopePlayer,
			Stat:   st,
			Window: n,
		})
	}
	for _, st := range previous {
		s.Entries = append(s.Entries, Entry{
			Name:   "Prev_" + string(st),
			Scope:  ScopePlayer,
			Stat:   st,
			Window: 1,
		})
	}
	s.Entries = append(s.Entries, Entry{
		Name:   fmt.Sprintf("Opp_GA_Avg_Last_%d", n),
		Scope:  ScopeOpponent,
		Stat:   model.StatGoalsAllowed,
		Window: n,
	})
	return s
}

// Names returns the column names in contract order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		names[i] = e.Name
	}
	return names
}

// Validate checks the schema is usable by the assembler.
func (s Schema) Validate() error {
	if s.Window < 1 {
		return fmt.Errorf("%w: window must be >= 1, got %d", ErrInvalidSchema, s.Window)
	}
	if len(s.Entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if e.Name == "" {
			return fmt.Errorf("%w: entry with empty name", ErrInvalidSchema)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidSchema, e.Name)
		}
		seen[e.Name] = struct{}{}
		if e.Window < 1 {
			return fmt.Errorf("%w: %s: window must be >= 1", ErrInvalidSchema, e.Name)
		}
		switch e.Scope {
		case ScopePlayer:
		case ScopeOpponent:
			// team defense is only tracked at the schema window.
			if e.Window != s.Window || e.Stat != model.StatGoalsAllowed {
				return fmt.Errorf("%w: %s: opponent entries must read %s over window %d",
					ErrInvalidSchema, e.Name, model.StatGoalsAllowed, s.Window)
			}
		default:
			return fmt.Errorf("%w: %s: unknown scope %q", ErrInvalidSchema, e.Name, e.Scope)
		}
	}
	return nil
}

// Lookup resolves the value of entry i. ok=false means unresolved.
type Lookup func(i int, e Entry) (v float64, ok bool)

// Vector builds one row in contract order. Player entries read player,
// opponent entries read opponent, and any unresolved value is 0.
func (s Schema) Vector(player, opponent Lookup) []float64 {
	out := make([]float64, len(s.Entries))
	for i, e := range s.Entries {
		look := player
		if e.Scope == ScopeOpponent {
			look = opponent
		}
		if look == nil {
			continue
		}
		if v, ok := look(i, e); ok {
			out[i] = v
		}
	}
	return out
}

// CheckContract fails unless got equals want element by element.
func CheckContract(got, want []string) error {
	if slices.Equal(got, want) {
		return nil
	}
	if len(got) != len(want) {
		return fmt.Errorf("%w: produced %d columns, expected %d", ErrFeatureContract, len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("%w: column %d is %q, expected %q", ErrFeatureContract, i, got[i], want[i])
		}
	}
	return fmt.Errorf("%w", ErrFeatureContract)
}
