package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Tracker records processed ids (game ids during a backfill) so the same
// unit of work is not fetched twice.
type Tracker interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed unit can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryTracker keeps ids in insertion order; in bounded mode the oldest id
// is evicted first.
type inMemoryTracker struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int // <= 0 means unbounded
}

// NewInMemoryTracker creates a tracker. Default capacity is 50000 ids.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 50000,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *inMemoryTracker) SeenAndRecord(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return true
	}
	if t.maxSize > 0 && len(t.seen) >= t.maxSize {
		if oldest := t.order.Front(); oldest != nil {
			delete(t.seen, oldest.Value.(string))
			t.order.Remove(oldest)
		}
	}
	t.seen[id] = t.order.PushBack(id)
	return false
}

func (t *inMemoryTracker) Unrecord(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.seen[id]; ok {
		t.order.Remove(el)
		delete(t.seen, id)
	}
}

func (t *inMemoryTracker) Size() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.seen))
}
