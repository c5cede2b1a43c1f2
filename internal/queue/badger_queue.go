// Package queue implements the durable stage queues on BadgerDB and the
// worker pools that consume them.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/autodidact-ai/curator/internal/common"
	"github.com/autodidact-ai/curator/internal/interfaces"
	"github.com/autodidact-ai/curator/internal/models"
)

// storedMessage is the wire format kept in Badger. VisibleAt drives the
// visibility index: a received message is reinserted with a future VisibleAt,
// so an unacked delivery reappears after the visibility timeout.
type storedMessage struct {
	ID           string             `json:"id"`
	Task         models.TaskMessage `json:"task"`
	EnqueuedAt   time.Time          `json:"enqueued_at"`
	VisibleAt    time.Time          `json:"visible_at"`
	ReceiveCount int                `json:"receive_count"`
}

// BadgerQueue is a persistent at-least-once queue on a shared Badger DB.
// Message data lives at queue:{name}:msg:{id}; a visibility index at
// queue:{name}:index:{visibleAt:020d}:{id} keeps ready messages scannable in
// delivery order.
type BadgerQueue struct {
	db                *badger.DB
	name              string
	visibilityTimeout time.Duration
	maxReceive        int
	logger            arbor.ILogger
}

// NewBadgerQueue creates a queue bound to one stage name.
func NewBadgerQueue(db *badger.DB, name string, visibilityTimeout time.Duration, maxReceive int) (*BadgerQueue, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if name == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 5
	}

	return &BadgerQueue{
		db:                db,
		name:              name,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
		logger:            common.GetLogger().WithPrefix("queue." + name),
	}, nil
}

// Name returns the stage queue name.
func (q *BadgerQueue) Name() string {
	return q.name
}

// Enqueue adds a task, immediately visible.
func (q *BadgerQueue) Enqueue(ctx context.Context, task models.TaskMessage) error {
	return q.EnqueueDelayed(ctx, task, 0)
}

// EnqueueDelayed adds a task that becomes visible after the delay. Stage
// retry backoff rides on this.
func (q *BadgerQueue) EnqueueDelayed(ctx context.Context, task models.TaskMessage, delay time.Duration) error {
	msg := storedMessage{
		ID:         uuid.New().String(),
		Task:       task,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now().Add(delay),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(q.msgKey(msg.ID), data); err != nil {
			return err
		}
		return txn.Set(q.indexKey(msg.VisibleAt, msg.ID), []byte{})
	})
}

// Receive claims the next visible message. The returned ack function removes
// the message permanently; an unacked message reappears after the visibility
// timeout with an incremented receive count. Messages past the max receive
// count are moved to the dead-letter prefix instead of being delivered.
func (q *BadgerQueue) Receive(ctx context.Context) (*interfaces.QueueMessage, func() error, error) {
	var claimed storedMessage

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := q.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		found := false
		var oldIndexKey []byte

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			ts, id, err := q.parseIndexKey(key)
			if err != nil {
				continue
			}
			// index keys sort by timestamp, nothing later is ready either
			if ts.After(now) {
				break
			}

			item, err := txn.Get(q.msgKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// orphaned index entry, clean it up
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			var msg storedMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}

			if msg.ReceiveCount >= q.maxReceive {
				if err := q.deadLetter(txn, key, msg); err != nil {
					return err
				}
				continue
			}

			found = true
			claimed = msg
			oldIndexKey = key
			break
		}

		if !found {
			return models.ErrNoMessage
		}

		claimed.ReceiveCount++
		claimed.VisibleAt = time.Now().Add(q.visibilityTimeout)

		data, err := json.Marshal(claimed)
		if err != nil {
			return err
		}
		if err := txn.Set(q.msgKey(claimed.ID), data); err != nil {
			return err
		}
		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(q.indexKey(claimed.VisibleAt, claimed.ID), []byte{})
	})
	if err != nil {
		return nil, nil, err
	}

	msgID := claimed.ID
	ack := func() error {
		return q.delete(msgID)
	}

	return &interfaces.QueueMessage{
		ID:           claimed.ID,
		Task:         claimed.Task,
		ReceiveCount: claimed.ReceiveCount,
	}, ack, nil
}

// deadLetter moves a poison message out of the delivery path. The payload is
// kept under the dead prefix for inspection.
func (q *BadgerQueue) deadLetter(txn *badger.Txn, indexKey []byte, msg storedMessage) error {
	q.logger.Error().
		Str("message_id", msg.ID).
		Str("content_id", msg.Task.ContentID).
		Int("receive_count", msg.ReceiveCount).
		Msg("Message exceeded max receives, moving to dead letter")

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := txn.Set(q.deadKey(msg.ID), data); err != nil {
		return err
	}
	if err := txn.Delete(indexKey); err != nil {
		return err
	}
	return txn.Delete(q.msgKey(msg.ID))
}

func (q *BadgerQueue) delete(id string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(q.msgKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // already acked
			}
			return err
		}

		var msg storedMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &msg)
		}); err != nil {
			return err
		}

		if err := txn.Delete(q.indexKey(msg.VisibleAt, id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Delete(q.msgKey(id))
	})
}

// Depth counts messages currently on the queue, visible or in flight.
// Dead-lettered messages are not counted.
func (q *BadgerQueue) Depth(ctx context.Context) (int, error) {
	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", q.name))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// DeadLetterCount counts messages parked under the dead-letter prefix.
func (q *BadgerQueue) DeadLetterCount(ctx context.Context) (int, error) {
	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:dead:", q.name))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (q *BadgerQueue) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", q.name, id))
}

func (q *BadgerQueue) deadKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:dead:%s", q.name, id))
}

func (q *BadgerQueue) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", q.name))
}

func (q *BadgerQueue) indexKey(visibleAt time.Time, id string) []byte {
	// zero-padded nanos keep lexical order equal to time order
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", q.name, visibleAt.UnixNano(), id))
}

func (q *BadgerQueue) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := q.indexPrefix()
	if len(key) <= len(prefix) {
		return time.Time{}, "", errors.New("invalid index key length")
	}

	suffix := string(key[len(prefix):])
	if len(suffix) < 22 { // 20 digit timestamp, colon, at least one id byte
		return time.Time{}, "", errors.New("invalid index key suffix")
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
