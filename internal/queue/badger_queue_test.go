package queue

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodidact-ai/curator/internal/models"
)

func testDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testTask(t *testing.T, contentID string) models.TaskMessage {
	t.Helper()
	task, err := models.NewTaskMessage(contentID, 3, models.FetchTask{SourceURL: "https://example.com/v/" + contentID})
	require.NoError(t, err)
	return task
}

func TestEnqueueReceiveAck(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, time.Minute, 5)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testTask(t, "vid_a1")))

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vid_a1", msg.Task.ContentID)
	assert.Equal(t, 1, msg.ReceiveCount)

	var payload models.FetchTask
	require.NoError(t, msg.Task.DecodePayload(&payload))
	assert.Equal(t, "https://example.com/v/vid_a1", payload.SourceURL)

	require.NoError(t, ack())

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrNoMessage)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestReceiveEmptyQueue(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, time.Minute, 5)
	require.NoError(t, err)

	_, _, err = q.Receive(context.Background())
	assert.ErrorIs(t, err, models.ErrNoMessage)
}

func TestDeliveryOrder(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, time.Minute, 5)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"vid_a1", "vid_b2", "vid_c3"} {
		require.NoError(t, q.Enqueue(ctx, testTask(t, id)))
		time.Sleep(time.Millisecond) // distinct visibility timestamps
	}

	var got []string
	for i := 0; i < 3; i++ {
		msg, ack, err := q.Receive(ctx)
		require.NoError(t, err)
		got = append(got, msg.Task.ContentID)
		require.NoError(t, ack())
	}
	assert.Equal(t, []string{"vid_a1", "vid_b2", "vid_c3"}, got)
}

func TestDelayedMessageInvisibleUntilDue(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, time.Minute, 5)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.EnqueueDelayed(ctx, testTask(t, "vid_a1"), 80*time.Millisecond))

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrNoMessage, "delayed message must not be visible yet")

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "delayed message still counts toward depth")

	time.Sleep(120 * time.Millisecond)

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vid_a1", msg.Task.ContentID)
	require.NoError(t, ack())
}

func TestUnackedMessageRedelivered(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, 60*time.Millisecond, 5)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testTask(t, "vid_a1")))

	msg, _, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, msg.ReceiveCount)

	// in flight: invisible until the timeout lapses
	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrNoMessage)

	time.Sleep(100 * time.Millisecond)

	again, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vid_a1", again.Task.ContentID)
	assert.Equal(t, 2, again.ReceiveCount)
	require.NoError(t, ack())
}

func TestDeadLetterAfterMaxReceives(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, 20*time.Millisecond, 2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testTask(t, "vid_a1")))

	// consume without acking until the receive budget is spent
	for i := 1; i <= 2; i++ {
		msg, _, err := q.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, msg.ReceiveCount)
		time.Sleep(40 * time.Millisecond)
	}

	_, _, err = q.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrNoMessage, "poison message must not be delivered again")

	dead, err := q.DeadLetterCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dead)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestAckIdempotent(t *testing.T) {
	db := testDB(t)
	q, err := NewBadgerQueue(db, models.QueueContentNew, time.Minute, 5)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testTask(t, "vid_a1")))
	_, ack, err := q.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, ack())
	require.NoError(t, ack(), "second ack of the same delivery is a no-op")
}

func TestQueuesAreIsolated(t *testing.T) {
	db := testDB(t)
	qa, err := NewBadgerQueue(db, models.QueueContentNew, time.Minute, 5)
	require.NoError(t, err)
	qb, err := NewBadgerQueue(db, models.QueueContentFetched, time.Minute, 5)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, qa.Enqueue(ctx, testTask(t, "vid_a1")))

	_, _, err = qb.Receive(ctx)
	assert.ErrorIs(t, err, models.ErrNoMessage)

	msg, ack, err := qa.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vid_a1", msg.Task.ContentID)
	require.NoError(t, ack())
}
