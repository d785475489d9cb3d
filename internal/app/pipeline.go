package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/goalcast/internal/adapters/artifact"
	"github.com/okian/goalcast/internal/domain/classifier"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/pkg/logger"
	"github.com/okian/goalcast/pkg/metrics"
)

// BuildReport summarizes a feature build.
type BuildReport struct {
	Observations int `json:"observations"`
	Rows         int `json:"rows"`
	Teams        int `json:"team_games"`
	Malformed    int `json:"malformed_games"`
}

// BuildFeatures rebuilds the feature and team-defense tables from the full
// record store and persists them.
func (s *Service) BuildFeatures(ctx context.Context) (*BuildReport, error) {
	start := time.Now()
	obs, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	table, err := features.Build(obs, s.schema, features.WithLogger(s.logger.Named("features")))
	if err != nil {
		return nil, err
	}
	if err := s.tableFiles.Save(table); err != nil {
		return nil, err
	}
	s.tables.Invalidate()

	d := time.Since(start)
	metrics.RecordFeatureBuild(len(table.Rows), len(table.Malformed), d)
	rep := &BuildReport{
		Observations: len(obs),
		Rows:         len(table.Rows),
		Teams:        len(table.Defense),
		Malformed:    len(table.Malformed),
	}
	s.logger.Info(ctx, "features built",
		logger.Int("rows", rep.Rows),
		logger.Int("malformed_games", rep.Malformed),
		logger.Int64("duration_ms", d.Milliseconds()))
	return rep, nil
}

// Train fits the classifier on the persisted feature table and writes the
// artifact.
func (s *Service) Train(ctx context.Context) (classifier.Report, error) {
	table, err := s.tables.Get(ctx)
	if err != nil {
		return classifier.Report{}, notReady(err)
	}
	ds := Dataset(table)
	m, rep, err := classifier.Train(ctx, ds, s.trainOpts...)
	if err != nil {
		return classifier.Report{}, err
	}
	if err := artifact.WriteAtomic(s.modelPath, func(w io.Writer) error { return m.Encode(w) }); err != nil {
		return classifier.Report{}, fmt.Errorf("write model: %w", err)
	}
	s.models.Invalidate()
	metrics.UpdateModelAUC(rep.AUC)
	s.logger.Info(ctx, "model trained",
		logger.Int("train_rows", rep.TrainRows),
		logger.Int("test_rows", rep.TestRows),
		logger.Float64("auc", rep.AUC))
	return rep, nil
}

// Dataset turns a feature table into a labeled matrix in contract order.
func Dataset(t *features.Table) classifier.Dataset {
	ds := classifier.Dataset{
		Names:         t.Schema.Names(),
		SchemaVersion: t.Schema.Version,
		Window:        t.Schema.Window,
		X:             make([][]float64, len(t.Rows)),
		Y:             make([]bool, len(t.Rows)),
	}
	for i, r := range t.Rows {
		ds.X[i] = r.Values
		ds.Y[i] = r.DidScore()
	}
	return ds
}
