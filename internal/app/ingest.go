package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
	"github.com/okian/goalcast/pkg/metrics"
)

// GameFailure is a game whose box score could not be ingested.
type GameFailure struct {
	GameID string `json:"game_id"`
	Error  string `json:"error"`
}

// IngestReport summarizes one day's ingestion.
type IngestReport struct {
	BatchID      uuid.UUID     `json:"batch_id"`
	Date         model.Day     `json:"date"`
	Games        int           `json:"games"`
	Skipped      int           `json:"skipped"`
	Observations int           `json:"observations"`
	Duplicates   int           `json:"duplicates_removed"`
	Failed       []GameFailure `json:"failed,omitempty"`
}

// Ingest fetches every game played on day and appends its skater lines.
// Writers for the same day are serialized and a failed game never aborts
// the others. Re-running a day is idempotent after the keep-last dedupe.
func (s *Service) Ingest(ctx context.Context, day model.Day) (*IngestReport, error) {
	if s.upstream == nil {
		return nil, ErrNoUpstream
	}
	rep := &IngestReport{BatchID: uuid.New(), Date: day}
	log := s.logger.With(logger.String("batch_id", rep.BatchID.String()), logger.String("date", day.String()))

	unlock, err := s.store.LockDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", day, err)
	}
	defer unlock()

	games, err := s.upstream.Schedule(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", day, err)
	}
	if len(games) == 0 {
		log.Info(ctx, "no games found")
		return rep, nil
	}

	var batch []model.Observation
	for _, g := range games {
		if s.tracker.SeenAndRecord(ctx, g.GameID) {
			rep.Skipped++
			metrics.RecordGameSkipped("already_ingested")
			continue
		}
		obs, err := s.upstream.Boxscore(ctx, g)
		if err != nil {
			s.tracker.Unrecord(ctx, g.GameID)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn(ctx, "skipping game", logger.String("game_id", g.GameID), logger.Error(err))
			metrics.RecordGameSkipped("boxscore_failed")
			rep.Failed = append(rep.Failed, GameFailure{GameID: g.GameID, Error: err.Error()})
			continue
		}
		rep.Games++
		metrics.RecordGameIngested()
		batch = append(batch, obs...)
	}

	if len(batch) > 0 {
		n, err := s.store.Append(ctx, rep.BatchID, batch)
		if err != nil {
			s.forget(ctx, games)
			return nil, fmt.Errorf("append %s: %w", day, err)
		}
		rep.Observations = n
		metrics.RecordObservationsIngested(n)
	}

	removed, err := s.Dedupe(ctx)
	if err != nil {
		return nil, err
	}
	rep.Duplicates = removed

	log.Info(ctx, "day ingested",
		logger.Int("games", rep.Games),
		logger.Int("observations", rep.Observations),
		logger.Int("failed", len(rep.Failed)),
		logger.Int("duplicates_removed", removed))
	return rep, nil
}

// Backfill ingests every day in [from, to]. A day whose schedule cannot be
// fetched is logged and skipped; cancellation stops the run.
func (s *Service) Backfill(ctx context.Context, from, to model.Day) ([]*IngestReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	var reports []*IngestReport
	for day := from; !day.After(to); day = day.AddDays(1) {
		rep, err := s.Ingest(ctx, day)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return reports, err
			}
			s.logger.Warn(ctx, "skipping day", logger.String("date", day.String()), logger.Error(err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Dedupe collapses duplicate observations in the store.
func (s *Service) Dedupe(ctx context.Context) (int, error) {
	removed, err := s.store.Dedupe(ctx)
	if err != nil {
		return 0, fmt.Errorf("dedupe: %w", err)
	}
	metrics.RecordDuplicatesRemoved(removed)
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateRecordsTotal(n)
	}
	return removed, nil
}

func (s *Service) forget(ctx context.Context, games []model.Game) {
	for _, g := range games {
		s.tracker.Unrecord(ctx, g.GameID)
	}
}
