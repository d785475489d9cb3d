// Package inference reproduces feature assembly for players about to play.
//
// Resolution runs in three phases: the schedule and rosters for the target
// day, each candidate's latest persisted feature row strictly before that day,
// and a vector built in feature-contract order. Players who cannot be
// resolved are reported with a reason instead of failing the request; a
// contract mismatch between the feature table and the model fails it.
package inference

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/goalcast/internal/domain/classifier"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
	"github.com/okian/goalcast/pkg/metrics"
)

// Skip reasons shown to users.
const (
	ReasonNoHistory      = "no historical data"
	ReasonTeamNotPlaying = "team not playing tonight"
	ReasonNotOnRoster    = "not on tonight's roster"
)

// SlateSource resolves a game day's schedule and rosters.
type SlateSource interface {
	Slate(ctx context.Context, day model.Day) (model.Slate, error)
}

// Request selects the target day and players. No players means every player
// with history.
type Request struct {
	Date      model.Day
	PlayerIDs []int64
}

// Prediction is one ranked player.
type Prediction struct {
	PlayerID    int64     `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	Team        string    `json:"team"`
	Opponent    string    `json:"opponent"`
	Probability float64   `json:"probability"`
	Goals       int       `json:"historical_goals"`
	Features    []float64 `json:"features"`
}

// Skipped is a player left out of the ranking and why.
type Skipped struct {
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
	Reason     string `json:"reason"`
}

// Result is the outcome of one prediction request.
type Result struct {
	Date        model.Day    `json:"date"`
	Games       []model.Game `json:"-"`
	Columns     []string     `json:"columns"`
	Predictions []Prediction `json:"predictions"`
	Skipped     []Skipped    `json:"skipped"`
}

// Resolver builds inference-time feature vectors.
type Resolver struct {
	slates       SlateSource
	rosterFilter bool
	log          logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRosterFilter toggles active-roster filtering. Default on.
func WithRosterFilter(on bool) Option {
	return func(r *Resolver) { r.rosterFilter = on }
}

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver over a slate source.
func NewResolver(slates SlateSource, opts ...Option) *Resolver {
	r := &Resolver{
		slates:       slates,
		rosterFilter: true,
		log:          logger.Get().Named("inference"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// candidate is a player that passed phase two.
type candidate struct {
	row      model.FeatureRow
	opponent string
}

// Resolve ranks req's players by predicted scoring probability using table
// and m as read-only inputs.
func (r *Resolver) Resolve(ctx context.Context, req Request, table *features.Table, m classifier.Model) (*Result, error) {
	start := time.Now()
	defer func() { metrics.RecordResolveDuration(time.Since(start)) }()

	if table == nil || m == nil {
		return nil, ErrNoTable
	}
	res := &Result{Date: req.Date, Predictions: []Prediction{}, Skipped: []Skipped{}}

	// Phase 1: schedule and rosters.
	slate, err := r.slates.Slate(ctx, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSchedule, req.Date, err)
	}
	res.Games = slate.Games
	if len(slate.Games) == 0 {
		r.log.Info(ctx, "no games scheduled", logger.String("date", req.Date.String()))
		return res, nil
	}
	matchups := slate.Matchups()
	rosters := make(map[string]map[int64]struct{}, len(slate.Rosters))
	for team, ids := range slate.Rosters {
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		rosters[team] = set
	}

	columns := table.Schema.Names()
	if err := features.CheckContract(columns, m.FeatureNames()); err != nil {
		metrics.RecordContractMismatch()
		return nil, err
	}
	res.Columns = columns

	// Phase 2: latest snapshot per player.
	latest := table.LatestBefore(req.Date)
	ids := req.PlayerIDs
	if len(ids) == 0 {
		ids = make([]int64, 0, len(latest))
		for id := range latest {
			ids = append(ids, id)
		}
		slices.Sort(ids)
	}

	var cands []candidate
	for _, id := range ids {
		row, ok := latest[id]
		if !ok {
			res.skip(Skipped{PlayerID: id, Reason: ReasonNoHistory})
			continue
		}
		opp, ok := matchups[row.Team]
		if !ok {
			res.skip(Skipped{PlayerID: id, PlayerName: row.PlayerName, Reason: ReasonTeamNotPlaying})
			continue
		}
		if roster, known := rosters[row.Team]; r.rosterFilter && known {
			if _, dressed := roster[id]; !dressed {
				res.skip(Skipped{PlayerID: id, PlayerName: row.PlayerName, Reason: ReasonNotOnRoster})
				continue
			}
		}
		cands = append(cands, candidate{row: row, opponent: opp})
	}
	for _, s := range res.Skipped {
		r.log.Debug(ctx, "player skipped",
			logger.Int64("player_id", s.PlayerID),
			logger.String("reason", s.Reason))
	}
	if len(cands) == 0 {
		return res, nil
	}

	// Phase 3: vectors in contract order.
	defense := table.DefenseBefore(req.Date)
	goals := table.GoalsBefore(req.Date)
	x := make([][]float64, len(cands))
	for i, c := range cands {
		if len(c.row.Values) != len(columns) {
			metrics.RecordContractMismatch()
			return nil, fmt.Errorf("%w: player %d row has %d values, contract has %d",
				features.ErrFeatureContract, c.row.PlayerID, len(c.row.Values), len(columns))
		}
		values := c.row.Values
		opp := c.opponent
		x[i] = table.Schema.Vector(
			func(j int, _ features.Entry) (float64, bool) { return values[j], true },
			func(_ int, _ features.Entry) (float64, bool) {
				v, ok := defense[opp]
				return v, ok
			},
		)
	}
	probs, err := m.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", features.ErrFeatureContract, err)
	}

	for i, c := range cands {
		res.Predictions = append(res.Predictions, Prediction{
			PlayerID:    c.row.PlayerID,
			PlayerName:  c.row.PlayerName,
			Team:        c.row.Team,
			Opponent:    c.opponent,
			Probability: probs[i],
			Goals:       goals[c.row.PlayerID],
			Features:    x[i],
		})
	}
	Rank(res.Predictions)
	metrics.RecordPredictions(len(res.Predictions))

	r.log.Info(ctx, "predictions resolved",
		logger.String("date", req.Date.String()),
		logger.Int("games", len(slate.Games)),
		logger.Int("predicted", len(res.Predictions)),
		logger.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (res *Result) skip(s Skipped) {
	metrics.RecordPlayerSkipped(s.Reason)
	res.Skipped = append(res.Skipped, s)
}

// Rank orders predictions by probability, then historical goals, both
// descending, then player id.
func Rank(ps []Prediction) {
	slices.SortStableFunc(ps, func(a, b Prediction) int {
		if c := cmp.Compare(b.Probability, a.Probability); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Goals, a.Goals); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
}
