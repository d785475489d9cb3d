package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/goalcast/internal/adapters/artifact"
	"github.com/okian/goalcast/internal/domain/dedupe"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
)

// CSVStore keeps observations in one CSV file, appended in ingestion order.
// Seq is the row position. It is safe for use by one process.
type CSVStore struct {
	path string
	opts options
	days *dayLocks

	mu     sync.Mutex
	closed bool
}

var _ Store = (*CSVStore)(nil)

// NewCSVStore opens (without creating) the record file at path.
func NewCSVStore(path string, opts ...Option) *CSVStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CSVStore{path: path, opts: o, days: newDayLocks()}
}

func (s *CSVStore) Append(ctx context.Context, batchID uuid.UUID, obs []model.Observation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if len(obs) == 0 {
		return 0, nil
	}

	header := false
	fi, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		header = true
	case err != nil:
		return 0, fmt.Errorf("stat %s: %w", s.path, err)
	default:
		header = fi.Size() == 0
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return 0, fmt.Errorf("create dir for %s: %w", s.path, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", s.path, err)
	}
	if err := writeObservations(f, obs, header); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("append %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", s.path, err)
	}

	s.opts.log.Info(ctx, "observations appended",
		logger.String("batch_id", batchID.String()),
		logger.Int("count", len(obs)),
		logger.String("path", s.path))
	return len(obs), nil
}

func (s *CSVStore) All(_ context.Context) ([]model.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.readLocked()
}

func (s *CSVStore) readLocked() ([]model.Observation, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	obs, err := readObservations(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return obs, nil
}

// Dedupe rewrites the file atomically with keep-last semantics.
func (s *CSVStore) Dedupe(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	obs, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	kept, removed := dedupe.KeepLast(obs)
	if removed == 0 {
		return 0, nil
	}
	err = artifact.WriteAtomic(s.path, func(w io.Writer) error {
		return writeObservations(w, kept, true)
	})
	if err != nil {
		return 0, err
	}
	s.opts.log.Info(ctx, "duplicates removed",
		logger.Int("removed", removed),
		logger.Int("remaining", len(kept)))
	return removed, nil
}

func (s *CSVStore) Count(ctx context.Context) (int, error) {
	obs, err := s.All(ctx)
	return len(obs), err
}

func (s *CSVStore) LockDay(ctx context.Context, day model.Day) (func(), error) {
	return s.days.lock(ctx, day)
}

func (s *CSVStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
