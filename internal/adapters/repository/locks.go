package repository

import (
	"context"
	"sync"

	"github.com/okian/goalcast/internal/domain/model"
)

// dayLocks is a keyed mutex: one lock per game day, created on demand and
// dropped when the last holder releases it.
type dayLocks struct {
	mu    sync.Mutex
	locks map[model.Day]*dayLock
}

type dayLock struct {
	ch   chan struct{}
	refs int
}

func newDayLocks() *dayLocks {
	return &dayLocks{locks: make(map[model.Day]*dayLock)}
}

func (d *dayLocks) lock(ctx context.Context, day model.Day) (func(), error) {
	d.mu.Lock()
	l, ok := d.locks[day]
	if !ok {
		l = &dayLock{ch: make(chan struct{}, 1)}
		d.locks[day] = l
	}
	l.refs++
	d.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		d.release(day, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			d.release(day, l)
		})
	}, nil
}

func (d *dayLocks) release(day model.Day, l *dayLock) {
	d.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(d.locks, day)
	}
	d.mu.Unlock()
}
