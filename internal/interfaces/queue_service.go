package interfaces

import (
	"context"
	"time"

	"github.com/autodidact-ai/curator/internal/models"
)

// QueueMessage is a received envelope plus broker bookkeeping.
type QueueMessage struct {
	ID           string
	Task         models.TaskMessage
	ReceiveCount int
}

// Queue is the durable at-least-once delivery channel between stages.
// Receive returns the next visible message and an ack function; the message
// becomes visible again after the visibility timeout if the ack is never
// called, which is what makes a crash between effect and ack redeliver.
type Queue interface {
	Name() string
	Enqueue(ctx context.Context, task models.TaskMessage) error

	// EnqueueDelayed makes the message visible only after the given delay.
	// Stage retry backoff is implemented with this.
	EnqueueDelayed(ctx context.Context, task models.TaskMessage, delay time.Duration) error

	// Receive returns models.ErrNoMessage when nothing is visible.
	Receive(ctx context.Context) (*QueueMessage, func() error, error)

	// Depth counts messages currently on the queue, visible or not.
	Depth(ctx context.Context) (int, error)
}
