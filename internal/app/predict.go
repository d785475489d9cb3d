package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/okian/goalcast/internal/adapters/artifact"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/internal/domain/inference"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/metrics"
)

const defaultTopN = 10

// Player is one known player with their most recent team.
type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

// Performer is one player's line on a given day.
type Performer struct {
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
	Team       string `json:"team"`
	Goals      int    `json:"goals"`
	Assists    int    `json:"assists"`
	Points     int    `json:"points"`
}

// Predict ranks players for day. An empty ids list means every player with
// history before day.
func (s *Service) Predict(ctx context.Context, day model.Day, ids []int64) (*inference.Result, error) {
	table, err := s.tables.Get(ctx)
	if err != nil {
		return nil, notReady(err)
	}
	m, err := s.models.Get(ctx)
	if err != nil {
		return nil, notReady(err)
	}
	res, err := s.resolver.Resolve(ctx, inference.Request{Date: day, PlayerIDs: ids}, table, m)
	if errors.Is(err, features.ErrFeatureContract) {
		metrics.RecordContractMismatch()
	}
	return res, err
}

// Players lists every player in the record store with their latest name and team.
func (s *Service) Players(ctx context.Context) ([]Player, error) {
	obs, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	latest := make(map[int64]model.Observation, len(obs)/8)
	for _, o := range obs {
		prev, ok := latest[o.PlayerID]
		if !ok || prev.Date.Before(o.Date) || (prev.Date.Equal(o.Date) && prev.Seq < o.Seq) {
			latest[o.PlayerID] = o
		}
	}
	out := make([]Player, 0, len(latest))
	for id, o := range latest {
		out = append(out, Player{ID: id, Name: o.PlayerName, Team: o.Team})
	}
	slices.SortFunc(out, func(a, b Player) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// TopPerformers returns up to n players by points on day, then goals, then id.
func (s *Service) TopPerformers(ctx context.Context, day model.Day, n int) ([]Performer, error) {
	if n <= 0 {
		n = defaultTopN
	}
	obs, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	out := []Performer{}
	for _, o := range obs {
		if !o.Date.Equal(day) {
			continue
		}
		out = append(out, Performer{
			PlayerID:   o.PlayerID,
			PlayerName: o.PlayerName,
			Team:       o.Team,
			Goals:      o.Goals,
			Assists:    o.Assists,
			Points:     o.Points(),
		})
	}
	slices.SortFunc(out, func(a, b Performer) int {
		return cmp.Or(
			cmp.Compare(b.Points, a.Points),
			cmp.Compare(b.Goals, a.Goals),
			cmp.Compare(a.PlayerID, b.PlayerID),
		)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func notReady(err error) error {
	if errors.Is(err, artifact.ErrMissing) {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return err
}
