package features

import (
	"context"
	"slices"

	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
)

// Table is the assembled, persisted hand-off between feature building and
// model fitting. Rows are ordered by player id, then chronologically.
type Table struct {
	Schema    Schema
	Rows      []model.FeatureRow
	Defense   []model.TeamDefense
	Malformed []MalformedGame
}

// Option configures Build.
type Option func(*assembler)

// WithLogger sets the logger used for data-integrity warnings.
func WithLogger(l logger.Logger) Option {
	return func(a *assembler) {
		if l != nil {
			a.log = l
		}
	}
}

type assembler struct {
	log logger.Logger
}

// Build assembles one feature row per observation. It is a pure function of
// obs and s: the same input always yields the same table.
func Build(obs []model.Observation, s Schema, opts ...Option) (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	a := &assembler{log: logger.Get().Named("features")}
	for _, opt := range opts {
		opt(a)
	}

	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, chronological)

	games, malformed := TeamGames(sorted)
	for _, m := range malformed {
		a.log.Warn(context.Background(), "excluding game without exactly two teams",
			logger.String("game_id", m.GameID),
			logger.Any("teams", m.Teams))
	}
	defense := TeamDefense(games, s.Window)
	opponents := opponentIndex(games)
	ga := defenseIndex(defense)

	ids, groups := byPlayer(sorted)
	rows := make([]model.FeatureRow, 0, len(sorted))
	for _, id := range ids {
		history := groups[id]
		rolled := playerRolling(s, history)
		for i, o := range history {
			opp, hasOpp := opponents[gameTeam{o.GameID, o.Team}]
			vals := s.Vector(
				func(j int, _ Entry) (float64, bool) { return rolled[i][j], true },
				func(_ int, _ Entry) (float64, bool) {
					if !hasOpp {
						return 0, false
					}
					v, ok := ga[gameTeam{o.GameID, opp}]
					return v, ok
				},
			)
			rows = append(rows, model.FeatureRow{Observation: o, Opponent: opp, Values: vals})
		}
	}

	a.log.Debug(context.Background(), "feature table assembled",
		logger.Int("rows", len(rows)),
		logger.Int("team_games", len(games)),
		logger.Int("malformed_games", len(malformed)))

	return &Table{Schema: s, Rows: rows, Defense: defense, Malformed: malformed}, nil
}

// LatestBefore returns each player's most recent row strictly before day,
// by date then ingestion order.
func (t *Table) LatestBefore(day model.Day) map[int64]model.FeatureRow {
	out := make(map[int64]model.FeatureRow)
	for _, r := range t.Rows {
		if !r.Date.Before(day) {
			continue
		}
		prev, ok := out[r.PlayerID]
		if !ok || chronological(prev.Observation, r.Observation) < 0 {
			out[r.PlayerID] = r
		}
	}
	return out
}

// DefenseBefore returns each team's latest rolling goals-allowed average from
// games strictly before day.
func (t *Table) DefenseBefore(day model.Day) map[string]float64 {
	latest := make(map[string]model.TeamDefense)
	for _, d := range t.Defense {
		if !d.Date.Before(day) {
			continue
		}
		prev, ok := latest[d.Team]
		if !ok || prev.Date.Before(d.Date) || (prev.Date.Equal(d.Date) && prev.Seq < d.Seq) {
			latest[d.Team] = d
		}
	}
	out := make(map[string]float64, len(latest))
	for team, d := range latest {
		out[team] = d.AvgGoalsAllowed
	}
	return out
}

// GoalsBefore returns each player's career goals strictly before day.
func (t *Table) GoalsBefore(day model.Day) map[int64]int {
	out := make(map[int64]int)
	for _, r := range t.Rows {
		if r.Date.Before(day) {
			out[r.PlayerID] += r.Goals
		}
	}
	return out
}
