package features

import (
	"cmp"
	"slices"

	"github.com/okian/goalcast/internal/domain/model"
)

// MalformedGame is a game id that did not have exactly two distinct teams.
type MalformedGame struct {
	GameID string   `json:"game_id"`
	Teams  []string `json:"teams"`
}

// gameTeam keys team-level joins. One row per key is expected.
type gameTeam struct {
	GameID string
	Team   string
}

// TeamGames sums goals per (game, team) and resolves each team's single
// opponent. Games without exactly two distinct teams are returned as
// malformed and left out of the result. Output is ordered by game first
// ingestion, then team.
func TeamGames(obs []model.Observation) ([]model.TeamGame, []MalformedGame) {
	totals := make(map[gameTeam]*model.TeamGame)
	teamsOf := make(map[string][]string)
	var order []string

	for _, o := range obs {
		k := gameTeam{GameID: o.GameID, Team: o.Team}
		tg, ok := totals[k]
		if !ok {
			tg = &model.TeamGame{GameID: o.GameID, Date: o.Date, Team: o.Team, Seq: o.Seq}
			totals[k] = tg
			if _, known := teamsOf[o.GameID]; !known {
				order = append(order, o.GameID)
			}
			teamsOf[o.GameID] = append(teamsOf[o.GameID], o.Team)
		}
		tg.GoalsFor += o.Goals
		if o.Seq < tg.Seq {
			tg.Seq = o.Seq
		}
	}

	var (
		games     []model.TeamGame
		malformed []MalformedGame
	)
	for _, id := range order {
		teams := teamsOf[id]
		slices.Sort(teams)
		if len(teams) != 2 {
			malformed = append(malformed, MalformedGame{GameID: id, Teams: teams})
			continue
		}
		a, b := totals[gameTeam{id, teams[0]}], totals[gameTeam{id, teams[1]}]
		a.Opponent, a.GoalsAllowed = b.Team, b.GoalsFor
		b.Opponent, b.GoalsAllowed = a.Team, a.GoalsFor
		games = append(games, *a, *b)
	}
	return games, malformed
}

// TeamDefense computes each team's rolling goals-allowed average with the
// same shift and window semantics as player features. One row per team game,
// ordered by team then chronologically.
func TeamDefense(games []model.TeamGame, n int) []model.TeamDefense {
	byTeam := make(map[string][]model.TeamGame)
	for _, g := range games {
		byTeam[g.Team] = append(byTeam[g.Team], g)
	}
	teams := make([]string, 0, len(byTeam))
	for t := range byTeam {
		teams = append(teams, t)
	}
	slices.Sort(teams)

	out := make([]model.TeamDefense, 0, len(games))
	for _, t := range teams {
		hist := byTeam[t]
		slices.SortStableFunc(hist, func(a, b model.TeamGame) int {
			if c := a.Date.Compare(b.Date); c != 0 {
				return c
			}
			return cmp.Compare(a.Seq, b.Seq)
		})
		ga := make([]float64, len(hist))
		for i, g := range hist {
			ga[i] = float64(g.GoalsAllowed)
		}
		for i, avg := range ShiftedMean(ga, n) {
			g := hist[i]
			out = append(out, model.TeamDefense{
				GameID:          g.GameID,
				Date:            g.Date,
				Team:            g.Team,
				GoalsAllowed:    g.GoalsAllowed,
				AvgGoalsAllowed: avg,
				Seq:             g.Seq,
			})
		}
	}
	return out
}

// opponentIndex maps (game, team) to the opposing team. Built once per game set.
func opponentIndex(games []model.TeamGame) map[gameTeam]string {
	idx := make(map[gameTeam]string, len(games))
	for _, g := range games {
		idx[gameTeam{g.GameID, g.Team}] = g.Opponent
	}
	return idx
}

// defenseIndex maps (game, team) to the team's rolling goals allowed entering that game.
func defenseIndex(rows []model.TeamDefense) map[gameTeam]float64 {
	idx := make(map[gameTeam]float64, len(rows))
	for _, r := range rows {
		idx[gameTeam{r.GameID, r.Team}] = r.AvgGoalsAllowed
	}
	return idx
}
