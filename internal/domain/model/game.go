package model

// Game is one scheduled game as reported by the upstream schedule.
type Game struct {
	GameID   string
	Date     Day
	HomeTeam string
	AwayTeam string
}

// TeamGame is a team's aggregate for one game: goals scored and, once the
// opponent is resolved, goals allowed.
type TeamGame struct {
	GameID       string
	Date         Day
	Team         string
	Opponent     string
	GoalsFor     int
	GoalsAllowed int
	Seq          int64 // first ingestion position of the team in the game
}

// TeamDefense is a team's rolling goals-allowed average entering a game.
type TeamDefense struct {
	GameID       string
	Date         Day
	Team         string
	GoalsAllowed int
	// AvgGoalsAllowed is the mean over the team's N prior games, 0 when none.
	AvgGoalsAllowed float64
	Seq             int64
}

// Slate is everything known about a game day before puck drop.
type Slate struct {
	Date  Day
	Games []Game
	// Rosters maps team -> dressed player ids. A team absent from the map has
	// no roster information.
	Rosters map[string][]int64
}

// Matchups returns team -> opponent for the slate's games.
func (s Slate) Matchups() map[string]string {
	m := make(map[string]string, len(s.Games)*2)
	for _, g := range s.Games {
		if g.HomeTeam == "" || g.AwayTeam == "" || g.HomeTeam == g.AwayTeam {
			continue
		}
		m[g.HomeTeam] = g.AwayTeam
		m[g.AwayTeam] = g.HomeTeam
	}
	return m
}
