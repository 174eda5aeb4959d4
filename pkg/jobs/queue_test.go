package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAndDrainsOnStop(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	q := New("numbers", func(_ context.Context, n int) error {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		return nil
	}, Config{Workers: 2, BufferSize: 16})

	q.Start(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	q.Stop()

	assert.Len(t, seen, 10)
	assert.ErrorIs(t, q.Enqueue(11), ErrNotRunning)
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := New("idle", func(context.Context, string) error { return nil }, Config{})
	assert.ErrorIs(t, q.Enqueue("x"), ErrNotRunning)
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	q := New("flaky", func(context.Context, string) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, Config{MaxRetries: 5, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue("job"))
	q.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	q := New("broken", func(context.Context, string) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}, Config{MaxRetries: 2, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue("job"))
	q.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueFullDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := New("slow", func(context.Context, int) error {
		started <- struct{}{}
		<-release
		return nil
	}, Config{Workers: 1, BufferSize: 1})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(1))
	<-started
	require.NoError(t, q.Enqueue(2))
	assert.ErrorIs(t, q.Enqueue(3), ErrQueueFull)

	close(release)
	q.Stop()
}
