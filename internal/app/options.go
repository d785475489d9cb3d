package service

import (
	"time"

	"github.com/okian/goalcast/internal/adapters/repository"
	"github.com/okian/goalcast/internal/domain/classifier"
	"github.com/okian/goalcast/internal/domain/dedupe"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/internal/domain/inference"
	"github.com/okian/goalcast/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the observation record store.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithUpstream sets the schedule and box-score source used by ingestion.
func WithUpstream(u Upstream) Option {
	return func(svc *Service) {
		if u != nil {
			svc.upstream = u
		}
	}
}

// WithSlateSource sets the game-day source used by predictions, usually a cache.
func WithSlateSource(s inference.SlateSource) Option {
	return func(svc *Service) {
		if s != nil {
			svc.slates = s
		}
	}
}

// WithTableFiles sets where the feature and team-defense tables live.
func WithTableFiles(f repository.TableFiles) Option {
	return func(svc *Service) {
		if f.FeaturesPath != "" && f.DefensePath != "" {
			svc.tableFiles = f
		}
	}
}

// WithModelPath sets the trained artifact path.
func WithModelPath(p string) Option {
	return func(svc *Service) {
		if p != "" {
			svc.modelPath = p
		}
	}
}

// WithWindow sets N for every rolling feature.
func WithWindow(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.schema = features.DefaultSchema(n)
		}
	}
}

// WithLocation sets the time zone that decides which day is "tonight".
func WithLocation(loc *time.Location) Option {
	return func(svc *Service) {
		if loc != nil {
			svc.loc = loc
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithRosterFilter toggles active-roster filtering at prediction time.
func WithRosterFilter(on bool) Option {
	return func(svc *Service) {
		svc.rosterFilter = on
	}
}

// WithTrainOptions sets classifier hyperparameters.
func WithTrainOptions(opts ...classifier.TrainOption) Option {
	return func(svc *Service) {
		svc.trainOpts = append(svc.trainOpts, opts...)
	}
}

// WithTracker sets the ingested-game tracker.
func WithTracker(t dedupe.Tracker) Option {
	return func(svc *Service) {
		if t != nil {
			svc.tracker = t
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}
