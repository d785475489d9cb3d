// Package service wires the record store, feature pipeline, classifier and
// schedule sources into the operations exposed by the CLI and the HTTP API.
package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/okian/goalcast/internal/adapters/artifact"
	"github.com/okian/goalcast/internal/adapters/repository"
	"github.com/okian/goalcast/internal/domain/classifier"
	"github.com/okian/goalcast/internal/domain/dedupe"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/internal/domain/inference"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
)

// Default file locations and settings.
const (
	defaultFeaturesPath = "data/nhl_featured_stats.csv"
	defaultDefensePath  = "data/nhl_team_defense.csv"
	defaultModelPath    = "data/nhl_goal_predictor_model.json"
	defaultWindow       = 10
	defaultTimezone     = "America/Vancouver"
)

// Upstream is the read-only schedule and box-score source.
type Upstream interface {
	Schedule(ctx context.Context, day model.Day) ([]model.Game, error)
	Boxscore(ctx context.Context, g model.Game) ([]model.Observation, error)
}

// Service implements the pipeline and the API dependencies.
type Service struct {
	store    repository.Store
	upstream Upstream
	slates   inference.SlateSource
	tracker  dedupe.Tracker

	schema     features.Schema
	tableFiles repository.TableFiles
	modelPath  string
	tables     *artifact.FileHandle[*features.Table]
	models     *artifact.FileHandle[*classifier.Logistic]
	resolver   *inference.Resolver

	rosterFilter bool
	trainOpts    []classifier.TrainOption
	loc          *time.Location
	now          func() time.Time

	logger logger.Logger
}

// New constructs a Service. Without options it uses an in-memory store and
// the default file locations.
func New(opts ...Option) *Service {
	s := &Service{
		schema: features.DefaultSchema(defaultWindow),
		tableFiles: repository.TableFiles{
			FeaturesPath: defaultFeaturesPath,
			DefensePath:  defaultDefensePath,
		},
		modelPath:    defaultModelPath,
		rosterFilter: true,
		loc:          defaultLocation(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.tracker == nil {
		s.tracker = dedupe.NewInMemoryTracker()
	}
	if s.slates == nil {
		if src, ok := s.upstream.(inference.SlateSource); ok {
			s.slates = src
		}
	}

	schema, files := s.schema, s.tableFiles
	s.tables = artifact.NewFileHandle("features", func(ctx context.Context) (*features.Table, error) {
		return files.Load(ctx, schema)
	}, files.Paths()...)
	modelPath := s.modelPath
	s.models = artifact.NewFileHandle("model", func(context.Context) (*classifier.Logistic, error) {
		return loadModel(modelPath)
	}, modelPath)
	s.resolver = inference.NewResolver(slateOrEmpty{s.slates},
		inference.WithRosterFilter(s.rosterFilter),
		inference.WithLogger(s.logger.Named("inference")))
	return s
}

// Schema returns the feature schema in use.
func (s *Service) Schema() features.Schema { return s.schema }

// Tonight is the current calendar day in the configured time zone.
func (s *Service) Tonight() model.Day {
	return model.DayOf(s.now().In(s.loc))
}

// Yesterday is the day before Tonight.
func (s *Service) Yesterday() model.Day {
	return s.Tonight().AddDays(-1)
}

// Ready reports whether predictions can be served.
func (s *Service) Ready(ctx context.Context) error {
	if _, err := s.tables.Get(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	if _, err := s.models.Get(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}

func loadModel(path string) (*classifier.Logistic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return classifier.Decode(f)
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// slateOrEmpty fails explicitly when no schedule source is configured.
type slateOrEmpty struct {
	src inference.SlateSource
}

func (s slateOrEmpty) Slate(ctx context.Context, day model.Day) (model.Slate, error) {
	if s.src == nil {
		return model.Slate{}, ErrNoUpstream
	}
	return s.src.Slate(ctx, day)
}
