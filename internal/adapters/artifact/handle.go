package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/okian/goalcast/pkg/logger"
	"github.com/okian/goalcast/pkg/metrics"
)

// Loader reads the value behind a handle.
type Loader[T any] func(ctx context.Context) (T, error)

// stamp identifies one version of a file.
type stamp struct {
	mod  time.Time
	size int64
}

// FileHandle caches a value loaded from one or more files and reloads it when
// any of them changes (modification time or size). It is safe for concurrent use.
type FileHandle[T any] struct {
	name  string
	paths []string
	load  Loader[T]
	log   logger.Logger

	mu     sync.Mutex
	value  T
	stamps []stamp
	loaded bool
}

// NewFileHandle creates a handle named name over paths.
func NewFileHandle[T any](name string, load Loader[T], paths ...string) *FileHandle[T] {
	return &FileHandle[T]{
		name:  name,
		paths: slices.Clone(paths),
		load:  load,
		log:   logger.Get().Named("artifact").With(logger.String("artifact", name)),
	}
}

// Get returns the current value, reloading it first if a backing file changed.
// A missing file yields ErrMissing.
func (h *FileHandle[T]) Get(ctx context.Context) (T, error) {
	var zero T
	current, err := h.stat()
	if err != nil {
		return zero, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded && slices.Equal(current, h.stamps) {
		return h.value, nil
	}

	v, err := h.load(ctx)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", h.name, err)
	}
	h.value, h.stamps, h.loaded = v, current, true
	metrics.RecordArtifactReload()
	h.log.Info(ctx, "artifact loaded", logger.Any("paths", h.paths))
	return v, nil
}

// Invalidate forces the next Get to reload.
func (h *FileHandle[T]) Invalidate() {
	h.mu.Lock()
	h.loaded = false
	h.mu.Unlock()
}

func (h *FileHandle[T]) stat() ([]stamp, error) {
	out := make([]stamp, len(h.paths))
	for i, p := range h.paths {
		fi, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, p)
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		out[i] = stamp{mod: fi.ModTime(), size: fi.Size()}
	}
	return out, nil
}
