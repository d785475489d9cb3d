// Package model contains domain models passed between layers.
package model

// Observation is one player's stat line in one game. Observations are
// append-only; Seq records ingestion order and breaks same-day ties.
type Observation struct {
	Seq int64 // ingestion order, assigned by the record store

	GameID     string
	Date       Day
	PlayerID   int64
	PlayerName string
	Team       string

	Goals          int
	Assists        int
	Shots          int
	Hits           int
	BlockedShots   int
	PenaltyMinutes int

	// Durations in seconds.
	TimeOnIce      int
	PowerPlayTOI   int
	ShortHandedTOI int
}

// Key identifies an observation for deduplication.
type Key struct {
	GameID   string
	PlayerID int64
	Date     Day
}

// Key returns the dedupe key of o.
func (o Observation) Key() Key {
	return Key{GameID: o.GameID, PlayerID: o.PlayerID, Date: o.Date}
}

// DidScore is the training label.
func (o Observation) DidScore() bool { return o.Goals > 0 }

// Points is goals plus assists.
func (o Observation) Points() int { return o.Goals + o.Assists }

// Stat names a numeric column of an Observation.
type Stat string

const (
	StatGoals          Stat = "Goals"
	StatAssists        Stat = "Assists"
	StatShots          Stat = "Shots"
	StatHits           Stat = "Hits"
	StatBlockedShots   Stat = "Blocked_Shots"
	StatPenaltyMinutes Stat = "Penalty_Minutes"
	StatTimeOnIce      Stat = "Time_On_Ice"
	StatPowerPlayTOI   Stat = "PowerPlay_TOI"
	StatShortHandedTOI Stat = "ShortHanded_TOI"
	// StatGoalsAllowed is a team-scoped stat, see TeamGame.
	StatGoalsAllowed Stat = "Goals_Allowed"
)

// Value returns the stat s of o. Unknown stats read as 0.
func (o Observation) Value(s Stat) float64 {
	switch s {
	case StatGoals:
		return float64(o.Goals)
	case StatAssists:
		return float64(o.Assists)
	case StatShots:
		return float64(o.Shots)
	case StatHits:
		return float64(o.Hits)
	case StatBlockedShots:
		return float64(o.BlockedShots)
	case StatPenaltyMinutes:
		return float64(o.PenaltyMinutes)
	case StatTimeOnIce:
		return float64(o.TimeOnIce)
	case StatPowerPlayTOI:
		return float64(o.PowerPlayTOI)
	case StatShortHandedTOI:
		return float64(o.ShortHandedTOI)
	default:
		return 0
	}
}
