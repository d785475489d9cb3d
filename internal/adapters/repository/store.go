// Package repository holds the observation record store and the persisted
// feature tables.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/goalcast/internal/domain/model"
)

// Store is the append-only observation log.
type Store interface {
	// Append adds obs in order and assigns each a Seq after every existing
	// record. batchID tags the ingestion run. Returns the number appended.
	Append(ctx context.Context, batchID uuid.UUID, obs []model.Observation) (int, error)

	// All returns every observation in ingestion order.
	All(ctx context.Context) ([]model.Observation, error)

	// Dedupe collapses records sharing (game, player, date), keeping the most
	// recently ingested. Returns the number removed. Idempotent.
	Dedupe(ctx context.Context) (int, error)

	// Count returns the number of stored observations.
	Count(ctx context.Context) (int, error)

	// LockDay serializes writers for one game day. The returned func releases it.
	LockDay(ctx context.Context, day model.Day) (func(), error)

	Close() error
}
