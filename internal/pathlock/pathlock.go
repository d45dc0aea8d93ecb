// Package pathlock serializes read-modify-write cycles per file path.
//
// Every structural edit of a file runs under that file's lock, so a second
// edit requested while the first is still in flight waits for the first
// write to land instead of reading stale content. Waiters for the same path
// are served in arrival order.
package pathlock

import (
	"context"
	"path/filepath"
	"sync"
)

// Locker hands out per-path FIFO locks. The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	tails map[string]*link
}

// link is one holder or waiter in a path's queue. done is closed when the
// holder releases; next waiter blocks on its predecessor's done.
type link struct {
	done chan struct{}
	refs *int
}

// Key normalises path so that equivalent spellings share a lock.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Lock blocks until the caller holds path's lock or ctx is done. The
// returned release function must be called exactly once on success.
func (l *Locker) Lock(ctx context.Context, path string) (func(), error) {
	key := Key(path)
	prev, mine := l.enqueue(key)
	release := func() { l.release(key, mine) }

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		// Keep our place in the queue so later waiters still see FIFO
		// order; hand the turn straight on once it arrives.
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

// Do runs fn while holding path's lock.
func (l *Locker) Do(ctx context.Context, path string, fn func() error) error {
	release, err := l.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Pending reports how many holders and waiters path currently has.
func (l *Locker) Pending(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tails[Key(path)]; ok {
		return *t.refs
	}
	return 0
}

func (l *Locker) enqueue(key string) (<-chan struct{}, *link) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tails == nil {
		l.tails = make(map[string]*link)
	}
	mine := &link{done: make(chan struct{})}
	tail, ok := l.tails[key]
	if !ok {
		n := 1
		mine.refs = &n
		l.tails[key] = mine
		return nil, mine
	}
	*tail.refs++
	mine.refs = tail.refs
	l.tails[key] = mine
	return tail.done, mine
}

func (l *Locker) release(key string, mine *link) {
	l.mu.Lock()
	defer l.mu.Unlock()
	close(mine.done)
	*mine.refs--
	if *mine.refs == 0 {
		delete(l.tails, key)
	}
}
