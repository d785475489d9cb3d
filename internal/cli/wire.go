// Package cli holds the process wiring and commands shared by the server
// and the pipeline binary.
package cli

import (
	"context"
	"fmt"

	"github.com/okian/goalcast/internal/adapters/cache"
	"github.com/okian/goalcast/internal/adapters/repository"
	"github.com/okian/goalcast/internal/adapters/upstream"
	service "github.com/okian/goalcast/internal/app"
	"github.com/okian/goalcast/internal/config"
	"github.com/okian/goalcast/internal/domain/classifier"
	"github.com/okian/goalcast/pkg/logger"
)

// Open builds a Service from cfg. The returned func releases the store and
// the schedule cache.
func Open(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	log := logger.Get()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	client := upstream.NewClient(
		upstream.WithBaseURL(cfg.UpstreamBaseURL),
		upstream.WithTimeout(cfg.UpstreamTimeout()),
		upstream.WithRetries(cfg.UpstreamMaxRetries),
		upstream.WithBackoff(cfg.UpstreamBackoff()),
		upstream.WithRequestDelay(cfg.UpstreamRequestDelay()),
		upstream.WithLogger(log.Named("upstream")),
	)

	cacheOpts := []cache.Option{
		cache.WithTTL(cfg.SlateCacheTTL()),
		cache.WithLogger(log.Named("cache")),
	}
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			// memory cache still works; only cross-process sharing is lost.
			log.Warn(ctx, "redis unavailable; using in-memory slate cache", logger.Error(err))
		} else {
			cacheOpts = append(cacheOpts, cache.WithStore(rs))
		}
	}
	slates := cache.New(client, cacheOpts...)

	svc := service.New(
		service.WithStore(store),
		service.WithUpstream(client),
		service.WithSlateSource(slates),
		service.WithTableFiles(repository.TableFiles{FeaturesPath: cfg.FeaturesPath, DefensePath: cfg.DefensePath}),
		service.WithModelPath(cfg.ModelPath),
		service.WithWindow(cfg.RollWindow),
		service.WithLocation(cfg.Location()),
		service.WithRosterFilter(cfg.RosterFilter),
		service.WithTrainOptions(
			classifier.WithIterations(cfg.TrainIterations),
			classifier.WithLearningRate(cfg.TrainLearningRate),
			classifier.WithTestFraction(cfg.TrainTestFraction),
			classifier.WithSeed(cfg.TrainSeed),
		),
		service.WithLogger(log.Named("service")),
	)

	closeFn := func() {
		if err := svc.Close(); err != nil {
			log.Warn(context.Background(), "closing store", logger.Error(err))
		}
		if err := slates.Close(); err != nil {
			log.Warn(context.Background(), "closing slate cache", logger.Error(err))
		}
	}
	return svc, closeFn, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	opt := repository.WithLogger(log.Named("repository"))
	switch cfg.StoreBackend {
	case "postgres":
		s, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN, opt)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		return repository.NewCSVStore(cfg.RecordsPath, opt), nil
	}
}
