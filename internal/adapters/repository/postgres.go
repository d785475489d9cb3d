package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
)

const pgSchema = `
CREATE SEQUENCE IF NOT EXISTS observation_ingest_seq;
CREATE TABLE IF NOT EXISTS observations (
	game_id          TEXT        NOT NULL,
	game_date        DATE        NOT NULL,
	player_id        BIGINT      NOT NULL,
	player_name      TEXT        NOT NULL DEFAULT '',
	team             TEXT        NOT NULL,
	goals            INTEGER     NOT NULL DEFAULT 0,
	assists          INTEGER     NOT NULL DEFAULT 0,
	shots            INTEGER     NOT NULL DEFAULT 0,
	hits             INTEGER     NOT NULL DEFAULT 0,
	blocked_shots    INTEGER     NOT NULL DEFAULT 0,
	penalty_minutes  INTEGER     NOT NULL DEFAULT 0,
	toi_seconds      INTEGER     NOT NULL DEFAULT 0,
	pp_toi_seconds   INTEGER     NOT NULL DEFAULT 0,
	sh_toi_seconds   INTEGER     NOT NULL DEFAULT 0,
	batch_id         UUID        NOT NULL,
	ingest_seq       BIGINT      NOT NULL DEFAULT nextval('observation_ingest_seq'),
	ingested_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (game_id, player_id, game_date)
);
CREATE INDEX IF NOT EXISTS observations_ingest_seq_idx ON observations (ingest_seq);
`

// A re-ingested record replaces the stored one and moves to the end of the
// ingestion order, which is keep-last applied at write time.
const pgUpsert = `
INSERT INTO observations (
	game_id, game_date, player_id, player_name, team,
	goals, assists, shots, hits, blocked_shots, penalty_minutes,
	toi_seconds, pp_toi_seconds, sh_toi_seconds, batch_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (game_id, player_id, game_date) DO UPDATE SET
	player_name     = EXCLUDED.player_name,
	team            = EXCLUDED.team,
	goals           = EXCLUDED.goals,
	assists         = EXCLUDED.assists,
	shots           = EXCLUDED.shots,
	hits            = EXCLUDED.hits,
	blocked_shots   = EXCLUDED.blocked_shots,
	penalty_minutes = EXCLUDED.penalty_minutes,
	toi_seconds     = EXCLUDED.toi_seconds,
	pp_toi_seconds  = EXCLUDED.pp_toi_seconds,
	sh_toi_seconds  = EXCLUDED.sh_toi_seconds,
	batch_id        = EXCLUDED.batch_id,
	ingest_seq      = nextval('observation_ingest_seq'),
	ingested_at     = now()
`

const pgSelectAll = `
SELECT ingest_seq, game_id, game_date, player_id, player_name, team,
	goals, assists, shots, hits, blocked_shots, penalty_minutes,
	toi_seconds, pp_toi_seconds, sh_toi_seconds
FROM observations
ORDER BY ingest_seq
`

// PostgresStore is a Store on PostgreSQL. Uniqueness of (game, player, date)
// is enforced by the primary key, so duplicates never persist.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool, opts: o}, nil
}

func (s *PostgresStore) Append(ctx context.Context, batchID uuid.UUID, obs []model.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(pgUpsert,
			o.GameID, o.Date.Time(), o.PlayerID, o.PlayerName, o.Team,
			o.Goals, o.Assists, o.Shots, o.Hits, o.BlockedShots, o.PenaltyMinutes,
			o.TimeOnIce, o.PowerPlayTOI, o.ShortHandedTOI, batchID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for i := range obs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("upsert observation %d (game %s, player %d): %w",
				i, obs[i].GameID, obs[i].PlayerID, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.opts.log.Info(ctx, "observations upserted",
		logger.String("batch_id", batchID.String()),
		logger.Int("count", len(obs)))
	return len(obs), nil
}

func (s *PostgresStore) All(ctx context.Context) ([]model.Observation, error) {
	rows, err := s.pool.Query(ctx, pgSelectAll)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var (
			o   model.Observation
			day time.Time
		)
		if err := rows.Scan(&o.Seq, &o.GameID, &day, &o.PlayerID, &o.PlayerName, &o.Team,
			&o.Goals, &o.Assists, &o.Shots, &o.Hits, &o.BlockedShots, &o.PenaltyMinutes,
			&o.TimeOnIce, &o.PowerPlayTOI, &o.ShortHandedTOI); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Date = model.DayOf(day)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

// Dedupe is a no-op: the upsert already keeps the last record per key.
func (s *PostgresStore) Dedupe(_ context.Context) (int, error) {
	return 0, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM observations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

// LockDay takes a session advisory lock keyed by the day, so ingestion runs
// in other processes serialize too.
func (s *PostgresStore) LockDay(ctx context.Context, day model.Day) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	key := advisoryKey(day)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("lock day %s: %w", day, err)
	}
	return func() {
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key); err != nil {
			s.opts.log.Warn(ctx, "advisory unlock failed", logger.String("day", day.String()), logger.Error(err))
		}
		conn.Release()
	}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func advisoryKey(day model.Day) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("goalcast/ingest/" + day.String()))
	return int64(h.Sum64())
}
