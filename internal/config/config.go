// Package config defines process configuration and its loading.
//
// Conventions:
// - New() returns defaults; Load(ctx) layers a YAML file and environment on top.
// - Validation failures wrap ErrInvalidConfig.
package config

// Config contains process configuration shared by the server and the pipeline CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the dashboard API listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the record store: "csv" or "postgres".
	StoreBackend string `koanf:"store_backend"`
	// RecordsPath is the raw observation CSV (csv backend).
	RecordsPath string `koanf:"records_path"`
	// PostgresDSN is used when StoreBackend is "postgres".
	PostgresDSN string `koanf:"postgres_dsn"`

	// FeaturesPath and DefensePath are the persisted feature and team-defense tables.
	FeaturesPath string `koanf:"features_path"`
	DefensePath  string `koanf:"defense_path"`
	// ModelPath is the trained classifier artifact.
	ModelPath string `koanf:"model_path"`

	// RollWindow is N in Avg_<Stat>_Last_N.
	RollWindow int `koanf:"roll_window"`

	// Timezone decides which calendar day "tonight" is.
	Timezone string `koanf:"timezone"`

	// Upstream schedule/box-score source.
	UpstreamBaseURL     string `koanf:"upstream_base_url"`
	UpstreamTimeoutMS   int    `koanf:"upstream_timeout_ms"`
	UpstreamMaxRetries  int    `koanf:"upstream_max_retries"`
	UpstreamBackoffMS   int    `koanf:"upstream_backoff_ms"`
	UpstreamPoliteDelay int    `koanf:"upstream_request_delay_ms"`

	// RosterFilter enables active-roster filtering at inference.
	RosterFilter bool `koanf:"roster_filter"`

	// SlateCacheTTLSec bounds how long a resolved schedule is reused.
	SlateCacheTTLSec int `koanf:"slate_cache_ttl_sec"`
	// RedisURL, when set, backs the slate cache with Redis instead of memory.
	RedisURL string `koanf:"redis_url"`

	// Training.
	TrainTestFraction float64 `koanf:"train_test_fraction"`
	TrainIterations   int     `koanf:"train_iterations"`
	TrainLearningRate float64 `koanf:"train_learning_rate"`
	TrainSeed         int64   `koanf:"train_seed"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreBackend:        "csv",
		RecordsPath:         "data/nhl_historical_stats.csv",
		FeaturesPath:        "data/nhl_featured_stats.csv",
		DefensePath:         "data/nhl_team_defense.csv",
		ModelPath:           "data/nhl_goal_predictor_model.json",
		RollWindow:          10,
		Timezone:            "America/Vancouver",
		UpstreamBaseURL:     "https://api-web.nhle.com/v1",
		UpstreamTimeoutMS:   15_000,
		UpstreamMaxRetries:  5,
		UpstreamBackoffMS:   2_000,
		UpstreamPoliteDelay: 250,
		RosterFilter:        true,
		SlateCacheTTLSec:    900,
		TrainTestFraction:   0.2,
		TrainIterations:     400,
		TrainLearningRate:   0.15,
		TrainSeed:           42,
	}
}
