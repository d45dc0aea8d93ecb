package pathlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSamePath(t *testing.T) {
	t.Parallel()
	var l Locker
	ctx := context.Background()

	var mu sync.Mutex
	inside := 0
	maxInside := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(ctx, "classes/A.ts", func() error {
				mu.Lock()
				inside++
				maxInside = max(maxInside, inside)
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 0, l.Pending("classes/A.ts"))
}

func TestLockIsFIFO(t *testing.T) {
	t.Parallel()
	var l Locker
	ctx := context.Background()

	release, err := l.Lock(ctx, "A.ts")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Do(ctx, "A.ts", func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			}))
		}(i)
		// Wait for waiter i to enqueue before starting the next one.
		require.Eventually(t, func() bool { return l.Pending("A.ts") == i+2 }, time.Second, time.Millisecond)
	}
	release()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLockDifferentPathsDoNotBlock(t *testing.T) {
	t.Parallel()
	var l Locker
	ctx := context.Background()

	releaseA, err := l.Lock(ctx, "A.ts")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		_ = l.Do(ctx, "B.ts", func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on B.ts blocked behind A.ts")
	}
}

func TestLockEquivalentSpellingsShareLock(t *testing.T) {
	t.Parallel()
	var l Locker
	release, err := l.Lock(context.Background(), "dir/../A.ts")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Pending("A.ts"))
	release()
	assert.Equal(t, 0, l.Pending("A.ts"))
}

func TestLockCanceledWaiterKeepsQueueMoving(t *testing.T) {
	t.Parallel()
	var l Locker

	release, err := l.Lock(context.Background(), "A.ts")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "A.ts")
	require.ErrorIs(t, err, context.Canceled)

	ran := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), "A.ts", func() error {
			close(ran)
			return nil
		})
	}()
	release()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("waiter behind a canceled lock never ran")
	}
	require.Eventually(t, func() bool { return l.Pending("A.ts") == 0 }, time.Second, time.Millisecond)
}
