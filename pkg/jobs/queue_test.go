package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesItems(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	q := NewQueue("test", func(ctx context.Context, payload string) error {
		mu.Lock()
		got = append(got, payload)
		if len(got) == 2 {
			close(done)
		}
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("items not processed in time")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestQueueRetriesFailedItems(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	q := NewQueue("test", func(ctx context.Context, payload string) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue("a"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("item not retried in time")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, payload string) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue("a"))
}
