package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

func TestWorkerPoolProcessesMessages(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, time.Minute, 5)
	require.NoError(t, err)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	handler := func(ctx context.Context, msg *interfaces.QueueMessage) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msg.Task.ContentID)
		return nil
	}

	for _, id := range []string{"vid_a1", "vid_b2", "vid_c3"} {
		require.NoError(t, q.Enqueue(ctx, testTask(t, id)))
	}

	pool := NewWorkerPool(q, handler, 2, 20*time.Millisecond, common.GetLogger())
	pool.Start()
	defer pool.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 10*time.Millisecond)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth, "processed messages must be acked off the queue")
}

func TestWorkerPoolLeavesFailedDeliveryForRedelivery(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, 50*time.Millisecond, 5)
	require.NoError(t, err)
	ctx := context.Background()

	var calls atomic.Int32
	handler := func(ctx context.Context, msg *interfaces.QueueMessage) error {
		if calls.Add(1) == 1 {
			return errors.New("transient store failure")
		}
		return nil
	}

	require.NoError(t, q.Enqueue(ctx, testTask(t, "vid_a1")))

	pool := NewWorkerPool(q, handler, 1, 20*time.Millisecond, common.GetLogger())
	pool.Start()
	defer pool.Stop()

	// first delivery fails and is not acked; the visibility timeout brings
	// it back and the second delivery succeeds
	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		depth, err := q.Depth(ctx)
		return err == nil && depth == 0
	}, 2*time.Second, 10*time.Millisecond)
}
